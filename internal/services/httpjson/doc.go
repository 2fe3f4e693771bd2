// Package httpjson provides the JSON-over-HTTP client shared by every remote
// forensic service. Each attempt runs under its own timeout; 408, 429, 5xx and
// network timeouts are retried with capped exponential backoff (honouring
// Retry-After), and final failures are tagged with the services error markers.
package httpjson
