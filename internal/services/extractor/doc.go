// Package extractor calls the remote technical metadata extractor.
package extractor
