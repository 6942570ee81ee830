// Package app is the driver: it walks the enrolled accounts sequentially
// and runs one browser session per account, either to submit a share
// application or to reconcile the application history.
//
// One account failing never aborts the batch. Each account's outcome is
// collected and reported at the end.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theleanbow/meroshare-automation/internal/accounts"
	"github.com/theleanbow/meroshare-automation/internal/browser"
	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/config"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
	"github.com/theleanbow/meroshare-automation/internal/meroshare"
	"github.com/theleanbow/meroshare-automation/internal/reconcile"
	"github.com/theleanbow/meroshare-automation/internal/workflow"
)

// Resolver is the remote-resource lookup surface the driver needs.
// *meroshare.Client implements it.
type Resolver interface {
	ParticipantName(ctx context.Context, dpID string) (string, error)
	FirstApplicableIssue(ctx context.Context, token string) (meroshare.ApplicableIssue, error)
	IssueByScrip(ctx context.Context, token, scrip string) (meroshare.ApplicableIssue, error)
	Bank(ctx context.Context, token string, policy meroshare.SelectBank) (meroshare.Bank, error)
}

// Session is one live browser the driver can hand to a workflow.
type Session interface {
	Page() browser.Page
	Close()
}

// SessionFactory opens a fresh browser session. Each account gets its own
// so no login state leaks between identities.
type SessionFactory func(ctx context.Context, headless bool) (Session, error)

// Workflow is the per-session state machine surface.
// *workflow.Orchestrator implements it.
type Workflow interface {
	Login(ctx context.Context, participantName string, creds accounts.Credentials) error
	ExtractToken(ctx context.Context) (string, error)
	SubmitApplication(ctx context.Context, companyShareID, bankID, kitta int, creds accounts.Credentials) (workflow.Outcome, error)
}

// Reconciler refreshes ledger entries against the remote status reports.
type Reconciler interface {
	Run(ctx context.Context, token, username, boid string) (reconcile.Result, error)
}

// AccountResult is one account's outcome in a batch run.
type AccountResult struct {
	Username string
	Company  string
	Skipped  bool
	Err      error
}

// App wires the driver's collaborators.
type App struct {
	cfg        *config.Config
	log        logging.Logger
	accounts   *accounts.Service
	ledger     ledger.Repository
	resolver   Resolver
	reconciler Reconciler

	newSession  SessionFactory
	newWorkflow func(page browser.Page) Workflow
}

func New(cfg *config.Config, log logging.Logger, svc *accounts.Service, repo ledger.Repository, resolver Resolver, reconciler Reconciler) *App {
	a := &App{
		cfg:        cfg,
		log:        log,
		accounts:   svc,
		ledger:     repo,
		resolver:   resolver,
		reconciler: reconciler,
	}
	a.newSession = func(ctx context.Context, headless bool) (Session, error) {
		return browser.NewSession(ctx, headless)
	}
	a.newWorkflow = func(page browser.Page) Workflow {
		return workflow.New(page, log, workflow.Config{
			FrontendURL: cfg.FrontendURL,
			WaitTimeout: cfg.UIWaitTimeout,
			SettleDelay: cfg.SettleDelay,
		})
	}
	return a
}

// Apply runs the share-application workflow for every enrolled account.
// Corrupt records are reported and skipped; the remaining accounts run
// sequentially with the configured pacing between them.
func (a *App) Apply(ctx context.Context) ([]AccountResult, error) {
	creds, failures, err := a.accounts.DecryptAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]AccountResult, 0, len(creds)+len(failures))
	for _, f := range failures {
		a.log.Error(ctx, "skipping unreadable account", "username", f.Account.Username, "error", f.Err)
		results = append(results, AccountResult{Username: f.Account.Username, Err: f.Err})
	}

	for i := range creds {
		if i > 0 {
			a.pace(ctx)
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		res := a.applyAccount(ctx, creds[i])
		creds[i].Wipe()
		results = append(results, res)

		if res.Err != nil {
			a.log.Error(ctx, "account failed", "username", res.Username,
				"error", res.Err, "retryable", IsRetryable(res.Err))
		}
	}
	return results, nil
}

func (a *App) applyAccount(ctx context.Context, creds accounts.Credentials) AccountResult {
	res := AccountResult{Username: creds.Username}

	a.log.Info(ctx, "starting account", "username", creds.Username, "dpId", creds.DPID)

	wf, closeSession, err := a.openSession(ctx, creds)
	if err != nil {
		res.Err = err
		return res
	}
	defer closeSession()

	token, err := wf.ExtractToken(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	a.checkTokenExpiry(ctx, token, creds.Username)

	issue, bank, err := a.resolveTargets(ctx, token)
	if err != nil {
		res.Err = err
		return res
	}
	res.Company = issue.CompanyName

	applied, err := a.alreadyApplied(ctx, creds.Username, issue.CompanyName)
	if err != nil {
		res.Err = err
		return res
	}
	if applied {
		a.log.Info(ctx, "already applied, skipping", "username", creds.Username, "company", issue.CompanyName)
		res.Skipped = true
		return res
	}

	outcome, err := wf.SubmitApplication(ctx, issue.CompanyShareID, bank.ID, a.cfg.AppliedKitta, creds)
	if err != nil {
		res.Err = err
		return res
	}

	if outcome.ErrorText != "" {
		res.Err = fmt.Errorf("application rejected: %s", outcome.ErrorText)
		return res
	}
	if outcome.Ambiguous() {
		a.log.Warn(ctx, "no result indicator after submit, recording as applied",
			"username", creds.Username, "company", issue.CompanyName)
	} else {
		a.log.Info(ctx, "application accepted", "username", creds.Username,
			"company", issue.CompanyName, "result", outcome.SuccessText)
	}

	entry := ledger.Entry{
		Company:  issue.CompanyName,
		BOID:     creds.BOID,
		Username: creds.Username,
		FullName: creds.FullName,
		Units:    a.cfg.AppliedKitta,
		Date:     time.Now().UTC(),
	}
	if err := a.ledger.Append(ctx, entry); err != nil {
		res.Err = fmt.Errorf("recording application: %w", err)
		return res
	}
	return res
}

// Reconcile logs in as every enrolled account and refreshes that account's
// ledger entries from the remote status reports.
func (a *App) Reconcile(ctx context.Context) ([]AccountResult, error) {
	creds, failures, err := a.accounts.DecryptAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]AccountResult, 0, len(creds)+len(failures))
	for _, f := range failures {
		a.log.Error(ctx, "skipping unreadable account", "username", f.Account.Username, "error", f.Err)
		results = append(results, AccountResult{Username: f.Account.Username, Err: f.Err})
	}

	for i := range creds {
		if i > 0 {
			a.pace(ctx)
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		res := a.reconcileAccount(ctx, creds[i])
		creds[i].Wipe()
		results = append(results, res)

		if res.Err != nil {
			a.log.Error(ctx, "account failed", "username", res.Username, "error", res.Err)
		}
	}
	return results, nil
}

func (a *App) reconcileAccount(ctx context.Context, creds accounts.Credentials) AccountResult {
	res := AccountResult{Username: creds.Username}

	wf, closeSession, err := a.openSession(ctx, creds)
	if err != nil {
		res.Err = err
		return res
	}
	defer closeSession()

	token, err := wf.ExtractToken(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	a.checkTokenExpiry(ctx, token, creds.Username)

	outcome, err := a.reconciler.Run(ctx, token, creds.Username, creds.BOID)
	if err != nil {
		res.Err = err
		return res
	}

	a.log.Info(ctx, "reconciled account", "username", creds.Username,
		"updated", outcome.Updated, "unmatched", len(outcome.Unmatched), "failed", len(outcome.Failures))
	return res
}

// openSession starts a browser, logs the account in, and returns the ready
// workflow plus a session closer.
func (a *App) openSession(ctx context.Context, creds accounts.Credentials) (Workflow, func(), error) {
	participant, err := a.resolver.ParticipantName(ctx, creds.DPID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving participant for dpId %s: %w", creds.DPID, err)
	}

	session, err := a.newSession(ctx, a.cfg.Headless)
	if err != nil {
		return nil, nil, fmt.Errorf("starting browser: %w", err)
	}

	wf := a.newWorkflow(session.Page())
	if err := wf.Login(ctx, participant, creds); err != nil {
		session.Close()
		return nil, nil, err
	}
	return wf, session.Close, nil
}

// resolveTargets looks up the issue to apply for and the destination bank
// concurrently; neither depends on the other.
func (a *App) resolveTargets(ctx context.Context, token string) (meroshare.ApplicableIssue, meroshare.Bank, error) {
	var issue meroshare.ApplicableIssue
	var bank meroshare.Bank

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if a.cfg.TargetScrip != "" {
			issue, err = a.resolver.IssueByScrip(gctx, token, a.cfg.TargetScrip)
		} else {
			issue, err = a.resolver.FirstApplicableIssue(gctx, token)
		}
		if err != nil {
			return fmt.Errorf("resolving issue: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bank, err = a.resolver.Bank(gctx, token, nil)
		if err != nil {
			return fmt.Errorf("resolving bank: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return meroshare.ApplicableIssue{}, meroshare.Bank{}, err
	}
	return issue, bank, nil
}

func (a *App) alreadyApplied(ctx context.Context, username, company string) (bool, error) {
	entries, err := a.ledger.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("loading history: %w", err)
	}
	for i := range entries {
		if entries[i].Matches(username, company) {
			return true, nil
		}
	}
	return false, nil
}

func (a *App) checkTokenExpiry(ctx context.Context, token, username string) {
	expiry, err := meroshare.TokenExpiry(token)
	if err != nil || expiry.IsZero() {
		return
	}
	if time.Now().After(expiry) {
		a.log.Warn(ctx, "session token already expired", "username", username, "expiry", expiry)
		return
	}
	a.log.Debug(ctx, "session token expiry", "username", username, "expiry", expiry)
}

func (a *App) pace(ctx context.Context) {
	select {
	case <-time.After(a.cfg.AccountPacing):
	case <-ctx.Done():
	}
}

// IsRetryable reports whether an account failure is worth retrying on a
// later run without operator intervention. Decryption and configuration
// problems are not; transient navigation and lookup failures are.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, common.ErrConfiguration),
		errors.Is(err, common.ErrDecryption),
		errors.Is(err, common.ErrMalformedCiphertext):
		return false
	}
	return true
}
