// Package gcs mirrors source media into the Cloud Storage bucket the remote
// analysis services read from.
package gcs
