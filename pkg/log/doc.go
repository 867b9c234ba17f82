// Package log provides structured protocol event logging for the
// broker client. Layers emit Events (frames, state changes, errors)
// to a Logger; applications plug in their own sink or use the
// included slog adapter. Logging is optional everywhere: a nil or
// NoopLogger disables it.
package log
