// Package config loads, normalizes, and validates StoryGraph configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOOGLE_APPLICATION_CREDENTIALS and STORYGRAPH_MEDIA_ROOT. The Config type
// centralizes every knob the CLI, the forensic dispatcher, and the poller need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, trimmed service endpoints, and clear validation errors.
package config
