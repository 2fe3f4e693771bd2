// Package videoai runs deep analysis jobs on Google Video Intelligence.
//
// Interviews get speech transcription and b-roll gets label plus shot
// detection. Jobs are long-running operations: Start returns the operation
// name, and Check polls it once so the reconciliation poller owns cadence.
package videoai
