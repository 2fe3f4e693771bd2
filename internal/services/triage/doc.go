// Package triage calls the snippet categorization service that separates
// interview footage from b-roll.
package triage
