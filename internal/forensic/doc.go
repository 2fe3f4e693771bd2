// Package forensic issues the per-asset remote analysis requests behind
// each pipeline phase and records their outcomes in the registry.
//
// Every operation handles exactly one asset. Failures are written onto the
// asset as an error state with the message in its analysis content and then
// returned; deciding whether a failure stops anything is the caller's job.
package forensic
