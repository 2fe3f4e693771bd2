// Package pipeline sequences the forensic phases over the asset registry.
//
// Phase state is derived from the stored records: each phase selects its
// assets with a pure predicate, so an interrupted batch resumes from the
// registry alone. Only one phase runs at a time, guarded by a Lease that
// covers both this process and any other process sharing the data directory.
// Within a batch assets run strictly one after another and a failing asset
// never stops the rest.
package pipeline
