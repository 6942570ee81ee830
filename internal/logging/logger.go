// Package logging defines a minimal structured-logging interface used across
// the project. The concrete implementation wraps slog; tests can substitute
// a recording logger.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "account processed", "username", acc.Username, "scrip", scrip)
type Logger interface {
	// Debug logs fine-grained progress of the workflow state machine.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning for unusual but non-fatal conditions
	// (ambiguous submission outcome, unmatched ledger entry, ...).
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs a failure.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given
	// key-value pairs.
	With(args ...any) Logger
}
