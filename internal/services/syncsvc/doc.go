// Package syncsvc calls the waveform cross-correlation service.
//
// Offsets cross this package boundary in timeline-fps frames. Responses that
// report seconds are converted here so callers never see another unit.
package syncsvc
