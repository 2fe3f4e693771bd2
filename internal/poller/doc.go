// Package poller reconciles assets whose deep analysis job is still running.
//
// Each tick lists in-flight assets and checks their jobs with bounded fan-out.
// An asset is never checked twice at once, and a job is resolved only while
// the stored record still names it, so a terminal asset is never polled again.
package poller
