// Package workflow drives one browser session through the share-application
// process: participant selection, login, session-token extraction, form
// population and PIN confirmation.
//
// The orchestrator is a state machine over a browser.Page. No transition is
// retried automatically except inside the final-submit fallback ladder;
// every earlier failure propagates to the driver, which moves on to the
// next account.
package workflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/browser"
	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/logging"
)

// Selectors on the MeroShare frontend. Page-structure details like these
// are the one thing guaranteed to rot; keeping them in one block makes the
// inevitable fixups cheap.
const (
	selParticipantSelect = ".select2-selection"
	selParticipantSearch = ".select2-search__field"
	selUsername          = "#username"
	selPassword          = "#password"
	selSubmit            = `button[type="submit"]`
	selSubmitLabel       = `button[type="submit"] span`
	selBank              = "#selectBank"
	selAccountNumber     = "#accountNumber"
	selAppliedKitta      = "#appliedKitta"
	selCRN               = "#crnNumber"
	selDisclaimer        = "#disclaimer"
	selTransactionPIN    = "#transactionPIN"

	sessionTokenKey = "Authorization"

	submitLabel = "Apply"
)

// Config carries the orchestrator's wait and pacing parameters.
//
// SettleDelay remains a blind sleep: it covers the spots where the remote
// page runs client-side validation timers with no observable completion
// signal. Everything observable is waited on with a polled predicate
// instead.
type Config struct {
	FrontendURL  string
	WaitTimeout  time.Duration
	SettleDelay  time.Duration
	PollInterval time.Duration

	// SubmitWait bounds each individual strategy of the confirmation
	// fallback ladder.
	SubmitWait time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.WaitTimeout == 0 {
		out.WaitTimeout = 30 * time.Second
	}
	if out.SettleDelay == 0 {
		out.SettleDelay = time.Second
	}
	if out.PollInterval == 0 {
		out.PollInterval = 250 * time.Millisecond
	}
	if out.SubmitWait == 0 {
		out.SubmitWait = 10 * time.Second
	}
	return out
}

// Outcome is what the page showed after the final submit. Both indicators
// are optional and independent; neither present is an ambiguous but
// non-fatal result.
type Outcome struct {
	ErrorText   string
	SuccessText string
}

// Ambiguous reports that neither indicator was found.
func (o Outcome) Ambiguous() bool {
	return o.ErrorText == "" && o.SuccessText == ""
}

// Orchestrator drives one account's session on one page.
type Orchestrator struct {
	page  browser.Page
	log   logging.Logger
	cfg   Config
	state State
}

func New(page browser.Page, log logging.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{page: page, log: log, cfg: cfg.withDefaults(), state: StateStart}
}

// State returns the machine's current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(ctx context.Context, next State) {
	o.log.Debug(ctx, "workflow transition", "from", o.state.String(), "to", next.String())
	o.state = next
}

func (o *Orchestrator) fail(ctx context.Context, err error) error {
	o.transition(ctx, StateFailed)
	return err
}

// Login drives Start through SessionEstablished: navigates to the entry
// surface, selects the depository participant by name, fills credentials
// and waits for the post-login navigation.
func (o *Orchestrator) Login(ctx context.Context, participantName string, creds accounts.Credentials) error {
	if err := o.page.Navigate(ctx, o.cfg.FrontendURL); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: opening %s: %v", common.ErrNavigation, o.cfg.FrontendURL, err))
	}

	if err := o.waitVisible(ctx, selParticipantSelect); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: login surface did not render: %v", common.ErrNavigation, err))
	}
	if err := o.page.Click(ctx, selParticipantSelect); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: opening participant select: %v", common.ErrNavigation, err))
	}
	o.transition(ctx, StateAwaitingParticipantSelection)

	if err := o.waitVisible(ctx, selParticipantSearch); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: participant search did not render: %v", common.ErrNavigation, err))
	}
	if err := o.page.Type(ctx, selParticipantSearch, participantName); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: typing participant name: %v", common.ErrNavigation, err))
	}

	// The dropdown must have filtered to at least one suggestion before
	// Enter confirms it; confirming an empty list leaves the form stuck.
	filtered := `document.querySelectorAll(".select2-results__option:not(.select2-results__message)").length > 0`
	if err := browser.WaitFor(ctx, o.page, filtered, o.cfg.WaitTimeout, o.cfg.PollInterval); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: no participant suggestion for %q", common.ErrAuthentication, participantName))
	}
	if err := o.page.PressEnter(ctx); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: confirming participant: %v", common.ErrAuthentication, err))
	}
	o.transition(ctx, StateAwaitingCredentials)

	if err := o.page.Type(ctx, selUsername, creds.Username); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: typing username: %v", common.ErrAuthentication, err))
	}
	o.settle(ctx)

	if err := o.page.Type(ctx, selPassword, creds.Password); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: typing password: %v", common.ErrAuthentication, err))
	}
	o.settle(ctx)

	if err := o.page.Click(ctx, selSubmit); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: submitting login: %v", common.ErrAuthentication, err))
	}
	o.transition(ctx, StateAuthenticatingSubmit)

	if err := o.waitNavigation(ctx); err != nil {
		return o.fail(ctx, fmt.Errorf("%w: no post-login navigation: %v", common.ErrAuthentication, err))
	}
	o.transition(ctx, StateSessionEstablished)
	return nil
}

// ExtractToken reads the bearer token from the session's transient storage
// on the ASBA surface. Without it no authenticated call can be made, so a
// missing token aborts the account's run.
func (o *Orchestrator) ExtractToken(ctx context.Context) (string, error) {
	if err := o.page.Navigate(ctx, o.cfg.FrontendURL+"/#/asba"); err != nil {
		return "", o.fail(ctx, fmt.Errorf("%w: opening asba surface: %v", common.ErrNavigation, err))
	}
	ready := `document.readyState === "complete"`
	if err := browser.WaitFor(ctx, o.page, ready, o.cfg.WaitTimeout, o.cfg.PollInterval); err != nil {
		return "", o.fail(ctx, fmt.Errorf("%w: asba surface did not settle: %v", common.ErrNavigation, err))
	}

	token, err := o.page.SessionStorageItem(ctx, sessionTokenKey)
	if err != nil {
		return "", o.fail(ctx, fmt.Errorf("%w: reading session storage: %v", common.ErrTokenMissing, err))
	}
	if token == "" {
		return "", o.fail(ctx, fmt.Errorf("%w: session storage has no %s entry", common.ErrTokenMissing, sessionTokenKey))
	}

	o.transition(ctx, StateTokenExtracted)
	return token, nil
}

// SubmitApplication drives the application form for a resolved issue:
// bank and destination-account selection, quantity, CRN, disclaimer, then
// the PIN confirmation with the fallback ladder.
func (o *Orchestrator) SubmitApplication(ctx context.Context, companyShareID, bankID, kitta int, creds accounts.Credentials) (Outcome, error) {
	o.transition(ctx, StateFormPopulating)

	formURL := fmt.Sprintf("%s/#/asba/apply/%d", o.cfg.FrontendURL, companyShareID)
	if err := o.page.Navigate(ctx, formURL); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("%w: opening application form: %v", common.ErrNavigation, err))
	}

	if err := o.waitVisible(ctx, selBank); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("%w: bank select did not render: %v", common.ErrNavigation, err))
	}
	if err := o.page.SetValue(ctx, selBank, strconv.Itoa(bankID)); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("selecting bank: %w", err))
	}

	// The account list populates asynchronously after the bank choice;
	// the first option is a placeholder.
	populated := `(() => {
		const s = document.querySelector("#accountNumber");
		return s && s.options.length > 1 && s.options[1].value !== "";
	})()`
	if err := browser.WaitFor(ctx, o.page, populated, o.cfg.WaitTimeout, o.cfg.PollInterval); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("%w: destination accounts never populated", common.ErrNoResults))
	}

	var accountValue string
	if err := o.page.Eval(ctx, `document.querySelector("#accountNumber").options[1].value`, &accountValue); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("reading destination account: %w", err))
	}
	if err := o.page.SetValue(ctx, selAccountNumber, accountValue); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("selecting destination account: %w", err))
	}

	if err := o.page.Type(ctx, selAppliedKitta, strconv.Itoa(kitta)); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("entering quantity: %w", err))
	}
	o.settle(ctx)

	if err := o.page.Type(ctx, selCRN, creds.CRNNumber); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("entering crn: %w", err))
	}
	o.settle(ctx)

	if err := o.page.Click(ctx, selDisclaimer); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("accepting disclaimer: %w", err))
	}

	if err := o.waitSubmitEnabled(ctx, o.cfg.WaitTimeout); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("%w: proceed control never enabled", common.ErrNavigation))
	}
	if err := o.page.Click(ctx, selSubmit); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("clicking proceed: %w", err))
	}
	o.transition(ctx, StateAwaitingConfirmation)

	if err := o.waitVisible(ctx, selTransactionPIN); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("%w: pin prompt did not render: %v", common.ErrNavigation, err))
	}
	if err := o.page.Type(ctx, selTransactionPIN, creds.PIN); err != nil {
		return Outcome{}, o.fail(ctx, fmt.Errorf("entering pin: %w", err))
	}

	// The remote validates the PIN asynchronously with no completion
	// signal; this sleep is the only synchronization available.
	o.sleep(ctx, 2*o.cfg.SettleDelay)

	if err := o.finalSubmit(ctx); err != nil {
		return Outcome{}, o.fail(ctx, err)
	}
	o.transition(ctx, StateSubmitted)

	o.sleep(ctx, 2*o.cfg.SettleDelay)
	outcome := o.scanOutcome(ctx)

	if outcome.ErrorText != "" {
		o.transition(ctx, StateFailed)
	} else {
		o.transition(ctx, StateSucceeded)
	}
	return outcome, nil
}

// finalSubmit runs the escalating fallback ladder for the confirmation
// click. The remote's submit control is unreliable: sometimes it never
// reports enabled, sometimes its label is the only way to find it. The
// ladder stops at the first strategy that completes; exhausting all four
// means we cannot know whether the remote registered the submission, which
// must surface as ambiguity, never as success.
func (o *Orchestrator) finalSubmit(ctx context.Context) error {
	// Strategy 1: wait for any enabled submit control.
	if err := o.trySubmitEnabled(ctx, o.cfg.SubmitWait); err == nil {
		o.log.Debug(ctx, "final submit succeeded", "strategy", 1)
		return nil
	}

	// Strategy 2: find a submit control by its visible label.
	if err := o.trySubmitByLabel(ctx); err == nil {
		o.log.Debug(ctx, "final submit succeeded", "strategy", 2)
		return nil
	}

	// Strategy 3: force-invoke the click programmatically, bypassing
	// visibility and enablement checks.
	if err := o.tryForceClick(ctx); err == nil {
		o.log.Debug(ctx, "final submit succeeded", "strategy", 3)
		return nil
	}

	// Strategy 4: wait longer, then one more pass of strategy 1.
	o.sleep(ctx, 3*o.cfg.SettleDelay)
	if err := o.trySubmitEnabled(ctx, o.cfg.SubmitWait); err == nil {
		o.log.Debug(ctx, "final submit succeeded", "strategy", 4)
		return nil
	}

	return fmt.Errorf("%w: all submit strategies exhausted", common.ErrSubmissionAmbiguous)
}

func (o *Orchestrator) trySubmitEnabled(ctx context.Context, timeout time.Duration) error {
	if err := o.waitSubmitEnabled(ctx, timeout); err != nil {
		return err
	}
	return o.page.Click(ctx, selSubmit)
}

func (o *Orchestrator) trySubmitByLabel(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, o.cfg.SubmitWait/2)
	defer cancel()
	if err := o.page.WaitVisible(wctx, selSubmitLabel); err != nil {
		return err
	}

	var label string
	if err := o.page.Eval(ctx, `document.querySelector('button[type="submit"] span').textContent.trim()`, &label); err != nil {
		return err
	}
	if label != submitLabel {
		return fmt.Errorf("submit label is %q, want %q", label, submitLabel)
	}
	return o.page.Click(ctx, selSubmit)
}

func (o *Orchestrator) tryForceClick(ctx context.Context) error {
	force := fmt.Sprintf(`(() => {
		const buttons = document.querySelectorAll('button[type="submit"]');
		for (const b of buttons) {
			const span = b.querySelector("span");
			if (span && span.textContent.trim() === %q) {
				b.click();
				return true;
			}
		}
		return false;
	})()`, submitLabel)

	var clicked bool
	if err := o.page.Eval(ctx, force, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("no labeled submit control to force-click")
	}
	return nil
}

// scanOutcome reads the optional error and success indicators. Both being
// absent is not an error; the driver logs it as an ambiguous outcome.
func (o *Orchestrator) scanOutcome(ctx context.Context) Outcome {
	var out Outcome
	_ = o.page.Eval(ctx, `(document.querySelector(".alert-danger") || {textContent: ""}).textContent.trim()`, &out.ErrorText)
	_ = o.page.Eval(ctx, `(document.querySelector(".alert-success") || {textContent: ""}).textContent.trim()`, &out.SuccessText)
	return out
}

func (o *Orchestrator) waitSubmitEnabled(ctx context.Context, timeout time.Duration) error {
	enabled := `document.querySelector('button[type="submit"]:not([disabled])') !== null`
	return browser.WaitFor(ctx, o.page, enabled, timeout, o.cfg.PollInterval)
}

func (o *Orchestrator) waitVisible(ctx context.Context, sel string) error {
	wctx, cancel := context.WithTimeout(ctx, o.cfg.WaitTimeout)
	defer cancel()
	return o.page.WaitVisible(wctx, sel)
}

func (o *Orchestrator) waitNavigation(ctx context.Context) error {
	wctx, cancel := context.WithTimeout(ctx, o.cfg.WaitTimeout)
	defer cancel()
	return o.page.WaitNavigation(wctx)
}

func (o *Orchestrator) settle(ctx context.Context) {
	o.sleep(ctx, o.cfg.SettleDelay)
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
