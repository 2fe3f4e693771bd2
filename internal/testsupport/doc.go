// Package testsupport provides temp-dir configs, registry helpers, and asset
// fixtures shared by package tests.
package testsupport
