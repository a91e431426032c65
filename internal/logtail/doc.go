// Package logtail reads the tail of muezzin's log file for the Logs view.
//
// Read keeps only the last N lines in a ring buffer, so memory stays bounded
// by N regardless of file size. A missing file is not an error: the view
// simply shows nothing until the first line is logged.
//
// Parse understands the plain console format written by internal/logging:
//
//	2025-10-27 14:32:15 INF poller started interval=2s
//
// Lines that do not start with a timestamp and a level (stack traces,
// wrapped output) are kept as continuation lines, and Filter drops them
// together with the entry they belong to.
package logtail
