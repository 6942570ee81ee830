package reconcile

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/ledger"
	"github.com/theleanbow/meroshare-automation/internal/logging"
	"github.com/theleanbow/meroshare-automation/internal/meroshare"
)

// fakeStatusClient scripts the remote side of reconciliation.
type fakeStatusClient struct {
	forms      []meroshare.ApplicantForm
	statuses   map[int]meroshare.ApplicationStatus
	statusErr  map[int]error
	searchErr  error
	statusGets int
}

func (f *fakeStatusClient) SearchApplicantForms(ctx context.Context, token string) ([]meroshare.ApplicantForm, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.forms, nil
}

func (f *fakeStatusClient) ApplicationStatus(ctx context.Context, token string, formID int) (meroshare.ApplicationStatus, error) {
	f.statusGets++
	if err := f.statusErr[formID]; err != nil {
		return meroshare.ApplicationStatus{}, err
	}
	return f.statuses[formID], nil
}

func newTestReconciler(t *testing.T, client StatusClient) (*Reconciler, ledger.Repository) {
	t.Helper()
	repo := ledger.NewJSONFileRepository(filepath.Join(t.TempDir(), "history.json"))
	log := logging.NewJSONLogger(io.Discard)
	return New(repo, client, log, 0), repo
}

func TestRun_UpdatesInPlace(t *testing.T) {
	client := &fakeStatusClient{
		forms:    []meroshare.ApplicantForm{{ApplicantFormID: 9, Scrip: "ABC"}},
		statuses: map[int]meroshare.ApplicationStatus{9: {StatusName: "COMPLETE", Remark: "Allotted"}},
	}
	r, repo := newTestReconciler(t, client)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, ledger.Entry{
		Company: "ABC", Username: "u1", Units: 10, Date: time.Now().UTC(),
	}))

	res, err := r.Run(ctx, "token", "u1", "boid-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Failures)
	assert.Empty(t, res.Unmatched)

	entries, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "reconcile must never append")
	assert.Equal(t, "COMPLETE", entries[0].StatusName)
	assert.Equal(t, "Allotted", entries[0].Remark)
	assert.Equal(t, "boid-1", entries[0].BOID)
}

func TestRun_Idempotent(t *testing.T) {
	client := &fakeStatusClient{
		forms:    []meroshare.ApplicantForm{{ApplicantFormID: 9, Scrip: "ABC"}},
		statuses: map[int]meroshare.ApplicationStatus{9: {StatusName: "COMPLETE"}},
	}
	r, repo := newTestReconciler(t, client)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, ledger.Entry{Company: "ABC", Username: "u1"}))

	_, err := r.Run(ctx, "token", "u1", "b")
	require.NoError(t, err)
	afterFirst, err := repo.Load(ctx)
	require.NoError(t, err)

	_, err = r.Run(ctx, "token", "u1", "b")
	require.NoError(t, err)
	afterSecond, err := repo.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, afterFirst, afterSecond)
}

func TestRun_KeyUniqueness(t *testing.T) {
	client := &fakeStatusClient{
		forms:    []meroshare.ApplicantForm{{ApplicantFormID: 9, Scrip: "ABC"}},
		statuses: map[int]meroshare.ApplicationStatus{9: {StatusName: "COMPLETE"}},
	}
	r, repo := newTestReconciler(t, client)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, ledger.Entry{Company: "ABC", Username: "u1"}))
	require.NoError(t, repo.Append(ctx, ledger.Entry{Company: "XYZ", Username: "u1"}))
	require.NoError(t, repo.Append(ctx, ledger.Entry{Company: "ABC", Username: "u2"}))

	for i := 0; i < 3; i++ {
		_, err := r.Run(ctx, "token", "u1", "b")
		require.NoError(t, err)
	}

	entries, err := repo.Load(ctx)
	require.NoError(t, err)

	seen := map[[2]string]int{}
	for _, e := range entries {
		seen[[2]string{e.Username, e.Company}]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "duplicate entries for %v", key)
	}
}

func TestApply_UnmatchedLeftUntouched(t *testing.T) {
	client := &fakeStatusClient{
		forms: []meroshare.ApplicantForm{{ApplicantFormID: 9, Scrip: "ABC"}},
		statuses: map[int]meroshare.ApplicationStatus{
			9: {StatusName: "COMPLETE"},
		},
	}
	r, _ := newTestReconciler(t, client)

	entries := []ledger.Entry{
		{Company: "ABC", Username: "u1"},
		{Company: "GONE", Username: "u1"},
	}

	res := r.Apply(context.Background(), entries, "token", "u1", "b")

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"GONE"}, res.Unmatched)
	assert.Empty(t, entries[1].StatusName)
}

func TestApply_PerEntryFailureDoesNotAbortBatch(t *testing.T) {
	client := &fakeStatusClient{
		forms: []meroshare.ApplicantForm{
			{ApplicantFormID: 9, Scrip: "ABC"},
			{ApplicantFormID: 10, Scrip: "XYZ"},
		},
		statuses:  map[int]meroshare.ApplicationStatus{10: {StatusName: "REJECTED"}},
		statusErr: map[int]error{9: errors.New("remote hiccup")},
	}
	r, _ := newTestReconciler(t, client)

	entries := []ledger.Entry{
		{Company: "ABC", Username: "u1"},
		{Company: "XYZ", Username: "u1"},
	}

	res := r.Apply(context.Background(), entries, "token", "u1", "b")

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "ABC", res.Failures[0].Company)
	assert.ErrorIs(t, res.Failures[0].Err, common.ErrReconciliation)

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "REJECTED", entries[1].StatusName)
}

func TestApply_SearchFailureFailsAllForUsername(t *testing.T) {
	client := &fakeStatusClient{searchErr: errors.New("backend down")}
	r, _ := newTestReconciler(t, client)

	entries := []ledger.Entry{
		{Company: "ABC", Username: "u1"},
		{Company: "XYZ", Username: "u2"},
	}

	res := r.Apply(context.Background(), entries, "token", "u1", "b")

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, common.ErrReconciliation)
	assert.Equal(t, 0, client.statusGets)
}

func TestApply_OtherUsernamesUntouched(t *testing.T) {
	client := &fakeStatusClient{
		forms:    []meroshare.ApplicantForm{{ApplicantFormID: 9, Scrip: "ABC"}},
		statuses: map[int]meroshare.ApplicationStatus{9: {StatusName: "COMPLETE"}},
	}
	r, _ := newTestReconciler(t, client)

	entries := []ledger.Entry{
		{Company: "ABC", Username: "u1"},
		{Company: "ABC", Username: "u2"},
	}

	res := r.Apply(context.Background(), entries, "token", "u1", "b")

	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, "COMPLETE", entries[0].StatusName)
	assert.Empty(t, entries[1].StatusName)
}
