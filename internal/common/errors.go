// Package common defines shared sentinel errors used across the automation
// core. Callers should use errors.Is to match these values; packages wrap
// them with fmt.Errorf("...: %w", ...) to add context.
package common

import "errors"

var (
	// Configuration / startup errors.
	ErrConfiguration = errors.New("configuration error")

	// Vault errors.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	ErrDecryption          = errors.New("decryption failed")

	// Resolver errors.
	ErrNotFound  = errors.New("not found")
	ErrNoResults = errors.New("no results")
	ErrNoMatch   = errors.New("no match")

	// Workflow errors. Each aborts the current account's run; the driver
	// continues with the next account.
	ErrNavigation          = errors.New("navigation failed")
	ErrAuthentication      = errors.New("authentication failed")
	ErrTokenMissing        = errors.New("session token missing")
	ErrSubmissionAmbiguous = errors.New("submission outcome ambiguous")

	// Reconciliation errors (per-entry, collected, never fatal for the batch).
	ErrReconciliation = errors.New("reconciliation failed")
)
