// Package logtail reads the tail of tern's own log file for the in-app log
// view.
//
// # Reading Log Files
//
// Read uses a ring buffer of maxLines entries, so the file is scanned once
// and memory stays O(maxLines) regardless of file size. Lines come back in
// chronological order. A non-positive maxLines returns the whole file.
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Structured Entries
//
// tern logs JSON through zap. Parse decodes one record into an Entry with
// time, level, message and the remaining fields; ReadEntries combines Read
// and Parse and drops records below a minimum level:
//
//	{"level":"warn","ts":"2026-01-02T10:00:00Z","msg":"operation poll failed","operation":"op-1"}
//
// Lines that are not JSON (a panic trace, output from an older build) are
// kept as unstructured entries with Raw set so nothing is hidden.
//
// # Error Handling
//
// Read returns nil, nil for non-existent files. Other errors (permission
// denied, I/O errors, lines over 1MB) are returned wrapped. Parse never fails.
package logtail
