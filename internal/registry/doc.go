// Package registry persists media assets and their pipeline state in SQLite.
//
// Every write goes through Store.Upsert, a per-field merge executed as one
// read-merge-write transaction. Reapplying a patch leaves the row untouched,
// and job state never returns to none once it has left it. The package also
// owns the normalization of raw technical metadata into native numeric types
// so no caller ever computes with extractor strings.
package registry
