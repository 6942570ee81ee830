package accounts

import "context"

// Repository stores at-rest account records. Two implementations exist:
// a JSON file guarded by an advisory lock, and Postgres.
type Repository interface {
	// List returns all stored records, secret fields still ciphertext.
	List(ctx context.Context) ([]Account, error)

	// Add persists a new record. The record's ID must already be set.
	Add(ctx context.Context, acc Account) error

	// Remove deletes the record with the given stable id. Fails with
	// common.ErrNotFound if no record carries it.
	Remove(ctx context.Context, id string) error
}
