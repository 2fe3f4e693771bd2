// Package transcoder fires the downstream transcode trigger.
//
// The HTTP call itself lives in Client. Dispatcher decouples it from the
// categorization path: triggers run in the background and their results are
// reported on a channel instead of failing the caller.
package transcoder
