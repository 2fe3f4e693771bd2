// Package timeline turns a registry snapshot into a multicam XMEML (version 5)
// sequence: one picture track and one linked camera audio track per interview
// angle, followed by the unlinked master audio spine.
//
// Synthesize is pure. It reads no clock and no files, so identical input
// yields a byte-identical document.
package timeline
