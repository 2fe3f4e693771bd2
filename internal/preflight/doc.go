// Package preflight provides readiness checks for the filesystem paths,
// remote services, and Google credentials StoryGraph depends on.
//
// These checks run in two contexts:
//   - The CLI "storygraph check" command runs RunAll and prints every result.
//   - Phase commands run the service check for their own endpoint before a
//     batch so an unreachable service fails once instead of once per asset.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
