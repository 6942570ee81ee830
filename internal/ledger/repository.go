package ledger

import "context"

// Repository stores ledger entries.
//
// Load of a not-yet-existing ledger returns an empty slice, not an error.
// Replace rewrites the whole ledger at once: the reconciler loads one
// snapshot, edits it in memory, and flushes it in a single atomic write so
// concurrent runs cannot observe a half-updated file.
type Repository interface {
	Load(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, entry Entry) error
	Replace(ctx context.Context, entries []Entry) error
}
