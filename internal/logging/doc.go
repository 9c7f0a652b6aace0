// Package logging sets up structured logging for skillscope.
//
// Logs are JSON records written to a size-rotated file under ~/.skillscope/logs/.
// Warnings and errors are additionally mirrored to stderr in text form so that
// skipped documents and truncated scans are visible without opening the log.
package logging
