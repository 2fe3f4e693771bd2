// Package services defines shared utilities consumed by the forensic
// dispatcher, the poller, and the remote service clients.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, phase names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (auth, remote service, missing master, storage) after they
//     have been recorded on an asset.
//   - StatusError, the common shape of a non-success HTTP response.
//
// Subpackages hold one client per remote dependency.
package services
