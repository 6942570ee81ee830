// Package browser abstracts the interactive page surface the workflow
// drives. The concrete implementation runs a Chrome instance through
// chromedp; tests substitute a scripted fake.
//
// This is deliberately not a general automation framework: the interface
// carries exactly the capabilities the share-application workflow needs.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by WaitFor when the predicate never became
// true within the deadline.
var ErrWaitTimeout = errors.New("wait condition not met before timeout")

// Page is one browser tab.
//
// Every method honors context cancellation; blocking waits (WaitVisible,
// WaitNavigation) give up when the context's deadline passes.
type Page interface {
	// Navigate loads url and returns once the DOM is available.
	Navigate(ctx context.Context, url string) error

	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, sel string) error

	// Click dispatches a click on the first element matching sel.
	Click(ctx context.Context, sel string) error

	// Type sends text to the element matching sel as individual
	// keystrokes, so client-side per-key validation fires as it would
	// for a human.
	Type(ctx context.Context, sel, text string) error

	// SetValue sets a form control's value directly (used for selects).
	SetValue(ctx context.Context, sel, value string) error

	// PressEnter sends an Enter key event to the focused element.
	PressEnter(ctx context.Context) error

	// Eval runs a JavaScript expression and decodes its result.
	Eval(ctx context.Context, expr string, result any) error

	// SessionStorageItem reads one key from the page's session storage.
	// Returns an empty string when the key is absent.
	SessionStorageItem(ctx context.Context, key string) (string, error)

	// WaitNavigation blocks until the next full page load completes.
	WaitNavigation(ctx context.Context) error
}

// WaitFor polls a boolean JavaScript predicate until it is true, replacing
// fixed settle sleeps wherever the page exposes an observable condition.
// Returns ErrWaitTimeout if the deadline passes first.
func WaitFor(ctx context.Context, p Page, expr string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var ok bool
		if err := p.Eval(ctx, expr, &ok); err == nil && ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ErrWaitTimeout
		case <-ticker.C:
		}
	}
}
