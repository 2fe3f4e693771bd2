// Package logging assembles structured slog loggers and formatting helpers used
// across StoryGraph.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so dispatcher and poller code
// automatically tags log lines with asset IDs, phases, and request IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
