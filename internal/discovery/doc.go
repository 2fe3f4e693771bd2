// Package discovery crawls a folder tree and registers the media it finds.
//
// Traversal is breadth-first and paginated. Filenames are NFC-normalized so
// the same file listed from different clients maps to one name.
package discovery
