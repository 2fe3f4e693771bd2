// Package jobstatus models long-running job status and polls jobs exposed
// over HTTP.
//
// FormatAnnotations is shared with the Video Intelligence client so both
// transports produce the same analysis content.
package jobstatus
