// Package reconcile merges remotely observed application status into the
// locally persisted ledger, keyed by (username, company), updating entries
// in place so the ledger never grows duplicates.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
	"github.com/theleanbow/meroshare-automation/internal/meroshare"
)

// StatusClient is the authenticated slice of the resolver the reconciler
// needs. *meroshare.Client satisfies it.
type StatusClient interface {
	SearchApplicantForms(ctx context.Context, token string) ([]meroshare.ApplicantForm, error)
	ApplicationStatus(ctx context.Context, token string, formID int) (meroshare.ApplicationStatus, error)
}

// Failure records one entry whose status could not be fetched. Per-entry
// failures never abort the batch.
type Failure struct {
	Company string
	Err     error
}

// Result summarizes one reconciliation batch.
type Result struct {
	Updated   int
	Unmatched []string
	Failures  []Failure
}

// Reconciler drives reconciliation batches against one ledger repository.
type Reconciler struct {
	repo   ledger.Repository
	client StatusClient
	log    logging.Logger
	pacing time.Duration
}

// New builds a Reconciler. pacing is slept between per-entry status
// fetches to stay under the remote's rate limits.
func New(repo ledger.Repository, client StatusClient, log logging.Logger, pacing time.Duration) *Reconciler {
	return &Reconciler{repo: repo, client: client, log: log, pacing: pacing}
}

// Apply reconciles one username's entries inside an already-loaded ledger
// snapshot, mutating matched entries in place. The caller owns persisting
// the snapshot; batching several usernames into one load/flush cycle keeps
// the window of inconsistency minimal.
func (r *Reconciler) Apply(ctx context.Context, entries []ledger.Entry, token, username, boid string) Result {
	var res Result

	forms, err := r.client.SearchApplicantForms(ctx, token)
	if err != nil {
		// Without the remote list nothing can be matched; report every
		// entry for this username as failed rather than guessing.
		for i := range entries {
			if entries[i].Username != username {
				continue
			}
			res.Failures = append(res.Failures, Failure{
				Company: entries[i].Company,
				Err:     fmt.Errorf("%w: listing applicant forms: %v", common.ErrReconciliation, err),
			})
		}
		return res
	}

	first := true
	for i := range entries {
		entry := &entries[i]
		if entry.Username != username {
			continue
		}

		if !first && r.pacing > 0 {
			select {
			case <-time.After(r.pacing):
			case <-ctx.Done():
				res.Failures = append(res.Failures, Failure{Company: entry.Company, Err: ctx.Err()})
				return res
			}
		}
		first = false

		form, ok := findForm(forms, entry.Company)
		if !ok {
			r.log.Warn(ctx, "no remote applicant form for ledger entry",
				"username", username, "company", entry.Company)
			res.Unmatched = append(res.Unmatched, entry.Company)
			continue
		}

		status, err := r.client.ApplicationStatus(ctx, token, form.ApplicantFormID)
		if err != nil {
			res.Failures = append(res.Failures, Failure{
				Company: entry.Company,
				Err:     fmt.Errorf("%w: fetching status for %s: %v", common.ErrReconciliation, entry.Company, err),
			})
			continue
		}

		entry.BOID = boid
		entry.StatusName = status.StatusName
		entry.Remark = status.Remark
		res.Updated++

		r.log.Info(ctx, "ledger entry reconciled",
			"username", username, "company", entry.Company, "status", status.StatusName)
	}
	return res
}

// Run loads the ledger, reconciles one username and flushes the whole
// snapshot back. A load or flush failure is fatal for the run; per-entry
// failures are carried in the Result.
func (r *Reconciler) Run(ctx context.Context, token, username, boid string) (Result, error) {
	entries, err := r.repo.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading ledger: %w", err)
	}

	res := r.Apply(ctx, entries, token, username, boid)

	if err := r.repo.Replace(ctx, entries); err != nil {
		return res, fmt.Errorf("writing ledger: %w", err)
	}
	return res, nil
}

// findForm matches a ledger entry's company against the remote list by
// either the scrip symbol or the full company name, case-insensitively.
// Older ledgers keyed on scrip, current ones on the company name.
func findForm(forms []meroshare.ApplicantForm, company string) (meroshare.ApplicantForm, bool) {
	for _, f := range forms {
		if common.EqualFold(f.Scrip, company) || common.EqualFold(f.CompanyName, company) {
			return f, true
		}
	}
	return meroshare.ApplicantForm{}, false
}
