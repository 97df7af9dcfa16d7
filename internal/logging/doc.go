// Package logging builds slog loggers with Loom's console and JSON output
// formats and provides shared attribute helpers.
package logging
