// Package timecode converts between non-drop SMPTE timecodes, absolute frame
// counts, and durations at differing frame rates.
//
// Timecode arithmetic runs on the nominal integer timebase round(fps), so a
// 23.976 source counts 24 frames per timecode second exactly as an editing
// tool displays it. Missing or invalid rates fall back to DefaultFrameRate.
// Drop-frame timecode is not supported.
package timecode
