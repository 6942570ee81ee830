package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/logging"
)

// fakePage scripts page behavior for the orchestrator. Boolean and string
// evaluations are dispatched on distinctive substrings of the expression,
// so tests do not have to repeat the orchestrator's JavaScript verbatim.
type fakePage struct {
	boolExprs   map[string]bool
	boolSeqs    map[string][]bool
	boolSeqIdx  map[string]int
	stringExprs map[string]string

	storage    map[string]string
	visibleErr map[string]error
	navErr     error

	navigated []string
	clicked   []string
	typed     map[string]string
	values    map[string]string
	enters    int
}

func newFakePage() *fakePage {
	return &fakePage{
		boolExprs:   map[string]bool{},
		boolSeqs:    map[string][]bool{},
		boolSeqIdx:  map[string]int{},
		stringExprs: map[string]string{},
		storage:     map[string]string{},
		visibleErr:  map[string]error{},
		typed:       map[string]string{},
		values:      map[string]string{},
	}
}

func (f *fakePage) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return nil
}

func (f *fakePage) WaitVisible(_ context.Context, sel string) error {
	return f.visibleErr[sel]
}

func (f *fakePage) Click(_ context.Context, sel string) error {
	f.clicked = append(f.clicked, sel)
	return nil
}

func (f *fakePage) Type(_ context.Context, sel, text string) error {
	f.typed[sel] += text
	return nil
}

func (f *fakePage) SetValue(_ context.Context, sel, value string) error {
	f.values[sel] = value
	return nil
}

func (f *fakePage) PressEnter(_ context.Context) error {
	f.enters++
	return nil
}

func (f *fakePage) Eval(_ context.Context, expr string, result any) error {
	switch out := result.(type) {
	case *bool:
		for key, seq := range f.boolSeqs {
			if strings.Contains(expr, key) {
				idx := f.boolSeqIdx[key]
				if idx >= len(seq) {
					idx = len(seq) - 1
				} else {
					f.boolSeqIdx[key]++
				}
				*out = seq[idx]
				return nil
			}
		}
		for key, v := range f.boolExprs {
			if strings.Contains(expr, key) {
				*out = v
				return nil
			}
		}
		*out = false
	case *string:
		for key, v := range f.stringExprs {
			if strings.Contains(expr, key) {
				*out = v
				return nil
			}
		}
		*out = ""
	default:
		return fmt.Errorf("unsupported result type %T", result)
	}
	return nil
}

func (f *fakePage) SessionStorageItem(_ context.Context, key string) (string, error) {
	return f.storage[key], nil
}

func (f *fakePage) WaitNavigation(ctx context.Context) error {
	if f.navErr != nil {
		return f.navErr
	}
	return nil
}

func (f *fakePage) clickCount(sel string) int {
	n := 0
	for _, c := range f.clicked {
		if c == sel {
			n++
		}
	}
	return n
}

func testConfig() Config {
	return Config{
		FrontendURL:  "https://front.example",
		WaitTimeout:  200 * time.Millisecond,
		SettleDelay:  time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		SubmitWait:   40 * time.Millisecond,
	}
}

func testCreds() accounts.Credentials {
	return accounts.Credentials{
		DPID:      "130",
		Username:  "alice01",
		Password:  "hunter2",
		CRNNumber: "CRN-77",
		PIN:       "4321",
	}
}

func newOrchestrator(page *fakePage) *Orchestrator {
	return New(page, logging.NewJSONLogger(io.Discard), testConfig())
}

func TestLogin(t *testing.T) {
	t.Run("drives the full entry flow", func(t *testing.T) {
		page := newFakePage()
		page.boolExprs["select2-results__option"] = true

		o := newOrchestrator(page)
		err := o.Login(context.Background(), "EVEREST BANK LIMITED", testCreds())
		require.NoError(t, err)

		assert.Equal(t, StateSessionEstablished, o.State())
		assert.Equal(t, []string{"https://front.example"}, page.navigated)
		assert.Equal(t, "EVEREST BANK LIMITED", page.typed[selParticipantSearch])
		assert.Equal(t, "alice01", page.typed[selUsername])
		assert.Equal(t, "hunter2", page.typed[selPassword])
		assert.Equal(t, 1, page.enters)
		assert.Equal(t, 1, page.clickCount(selSubmit))
	})

	t.Run("no participant suggestion is an authentication failure", func(t *testing.T) {
		page := newFakePage()

		o := newOrchestrator(page)
		err := o.Login(context.Background(), "NO SUCH PARTICIPANT", testCreds())
		require.ErrorIs(t, err, common.ErrAuthentication)

		assert.Equal(t, StateFailed, o.State())
		assert.Zero(t, page.enters)
	})

	t.Run("missing post-login navigation is an authentication failure", func(t *testing.T) {
		page := newFakePage()
		page.boolExprs["select2-results__option"] = true
		page.navErr = context.DeadlineExceeded

		o := newOrchestrator(page)
		err := o.Login(context.Background(), "EVEREST BANK LIMITED", testCreds())
		require.ErrorIs(t, err, common.ErrAuthentication)
		assert.Equal(t, StateFailed, o.State())
	})

	t.Run("login surface not rendering is a navigation failure", func(t *testing.T) {
		page := newFakePage()
		page.visibleErr[selParticipantSelect] = context.DeadlineExceeded

		o := newOrchestrator(page)
		err := o.Login(context.Background(), "EVEREST BANK LIMITED", testCreds())
		require.ErrorIs(t, err, common.ErrNavigation)
		assert.Equal(t, StateFailed, o.State())
	})
}

func TestExtractToken(t *testing.T) {
	t.Run("reads the bearer token", func(t *testing.T) {
		page := newFakePage()
		page.boolExprs["readyState"] = true
		page.storage["Authorization"] = "Bearer abc.def.ghi"

		o := newOrchestrator(page)
		token, err := o.ExtractToken(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Bearer abc.def.ghi", token)
		assert.Equal(t, StateTokenExtracted, o.State())
		assert.Equal(t, []string{"https://front.example/#/asba"}, page.navigated)
	})

	t.Run("empty storage entry fails the account", func(t *testing.T) {
		page := newFakePage()
		page.boolExprs["readyState"] = true

		o := newOrchestrator(page)
		_, err := o.ExtractToken(context.Background())
		require.ErrorIs(t, err, common.ErrTokenMissing)
		assert.Equal(t, StateFailed, o.State())
	})
}

func submitReadyPage() *fakePage {
	page := newFakePage()
	page.boolExprs["options.length"] = true
	page.boolExprs[":not([disabled])"] = true
	page.stringExprs["#accountNumber"] = "8842"
	return page
}

func TestSubmitApplication(t *testing.T) {
	t.Run("fills the form and confirms with the pin", func(t *testing.T) {
		page := submitReadyPage()
		page.stringExprs["alert-success"] = "Share applied successfully."

		o := newOrchestrator(page)
		outcome, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.NoError(t, err)

		assert.Equal(t, StateSucceeded, o.State())
		assert.Equal(t, "Share applied successfully.", outcome.SuccessText)
		assert.False(t, outcome.Ambiguous())

		assert.Equal(t, []string{"https://front.example/#/asba/apply/512"}, page.navigated)
		assert.Equal(t, "44", page.values[selBank])
		assert.Equal(t, "8842", page.values[selAccountNumber])
		assert.Equal(t, "10", page.typed[selAppliedKitta])
		assert.Equal(t, "CRN-77", page.typed[selCRN])
		assert.Equal(t, "4321", page.typed[selTransactionPIN])
		assert.Equal(t, 1, page.clickCount(selDisclaimer))
		// Proceed plus the ladder's confirmation click.
		assert.Equal(t, 2, page.clickCount(selSubmit))
	})

	t.Run("error indicator ends in the failed state", func(t *testing.T) {
		page := submitReadyPage()
		page.stringExprs["alert-danger"] = "CRN does not match."

		o := newOrchestrator(page)
		outcome, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.NoError(t, err)

		assert.Equal(t, StateFailed, o.State())
		assert.Equal(t, "CRN does not match.", outcome.ErrorText)
	})

	t.Run("neither indicator is a non-fatal ambiguous outcome", func(t *testing.T) {
		page := submitReadyPage()

		o := newOrchestrator(page)
		outcome, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.NoError(t, err)

		assert.Equal(t, StateSucceeded, o.State())
		assert.True(t, outcome.Ambiguous())
	})

	t.Run("accounts never populating aborts the form", func(t *testing.T) {
		page := newFakePage()

		o := newOrchestrator(page)
		_, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.ErrorIs(t, err, common.ErrNoResults)
		assert.Equal(t, StateFailed, o.State())
		assert.Empty(t, page.typed[selTransactionPIN])
	})

	t.Run("label fallback confirms when enablement never reports", func(t *testing.T) {
		page := submitReadyPage()
		// Proceed sees the control enabled once; the ladder never does.
		page.boolSeqs[":not([disabled])"] = []bool{true, false}
		page.stringExprs["span"] = "Apply"

		o := newOrchestrator(page)
		_, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.NoError(t, err)

		assert.Equal(t, 2, page.clickCount(selSubmit))
	})

	t.Run("force click fallback confirms when the label lookup fails", func(t *testing.T) {
		page := submitReadyPage()
		page.boolSeqs[":not([disabled])"] = []bool{true, false}
		page.boolExprs["b.click"] = true

		o := newOrchestrator(page)
		_, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.NoError(t, err)

		// The force click happens inside the page; only proceed was a
		// real click.
		assert.Equal(t, 1, page.clickCount(selSubmit))
	})

	t.Run("ladder exhaustion reports an ambiguous submission", func(t *testing.T) {
		page := submitReadyPage()
		page.boolSeqs[":not([disabled])"] = []bool{true, false}

		o := newOrchestrator(page)
		_, err := o.SubmitApplication(context.Background(), 512, 44, 10, testCreds())
		require.ErrorIs(t, err, common.ErrSubmissionAmbiguous)

		assert.Equal(t, StateFailed, o.State())
		assert.Equal(t, 1, page.clickCount(selSubmit))
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "start", StateStart.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "unknown", State(99).String())
}
