// Package logging constructs the slog loggers used across docflow, with
// console and JSON handlers and combined stdout + file output derived from
// configuration.
package logging
