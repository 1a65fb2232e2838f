// Package logging builds the slog loggers used across the pipeline. Console
// output is a compact key=value line format for interactive runs; json output
// is for cron and log shipping. When no format is configured the CLI picks
// console on a TTY and json otherwise.
package logging
