package meroshare

import (
	"context"
	"fmt"
	"net/http"

	"github.com/theleanbow/meroshare-automation/internal/common"
)

// View-role constants the backend's search endpoints switch on.
const (
	viewApplicableShare    = "VIEW_APPLICABLE_SHARE"
	viewApplicantFormsDone = "VIEW_APPLICANT_FORM_COMPLETE"
)

// SelectBank picks one bank from a non-empty candidate list. The remote
// lists at most a handful; which one is "right" when several exist is a
// per-deployment decision, so the policy is explicit rather than hard-coded.
type SelectBank func(banks []Bank) Bank

// SelectFirstBank returns the first listed bank. This matches the remote
// UI's default ordering and is the default policy.
func SelectFirstBank(banks []Bank) Bank { return banks[0] }

// ParticipantName looks up a depository participant's display name by its
// code in the public reference list. Matching is case-insensitive. Fails
// with common.ErrNotFound if no entry matches.
func (c *Client) ParticipantName(ctx context.Context, dpID string) (string, error) {
	var entries []capitalEntry
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/capital/", "", nil, &entries); err != nil {
		return "", err
	}

	for _, e := range entries {
		if common.EqualFold(e.Code, dpID) {
			return e.Name, nil
		}
	}
	return "", fmt.Errorf("%w: participant %q not in reference list", common.ErrNotFound, dpID)
}

// FirstApplicableIssue returns the first result of the first page of the
// applicable-issue search. Picking the first is deliberate: re-narrowing
// happens downstream, and callers that need a specific issue use
// IssueByScrip instead. Fails with common.ErrNoResults on an empty set.
func (c *Client) FirstApplicableIssue(ctx context.Context, token string) (ApplicableIssue, error) {
	issues, err := c.applicableIssues(ctx, token)
	if err != nil {
		return ApplicableIssue{}, err
	}
	if len(issues) == 0 {
		return ApplicableIssue{}, fmt.Errorf("%w: no applicable issues open", common.ErrNoResults)
	}
	return issues[0], nil
}

// IssueByScrip filters the applicable-issue search for a case-insensitive
// exact match on the scrip symbol. Fails with common.ErrNoMatch if no open
// issue carries the symbol.
func (c *Client) IssueByScrip(ctx context.Context, token, scrip string) (ApplicableIssue, error) {
	issues, err := c.applicableIssues(ctx, token)
	if err != nil {
		return ApplicableIssue{}, err
	}

	for _, issue := range issues {
		if common.EqualFold(issue.Scrip, scrip) {
			return issue, nil
		}
	}
	return ApplicableIssue{}, fmt.Errorf("%w: no applicable issue for scrip %q", common.ErrNoMatch, scrip)
}

func (c *Client) applicableIssues(ctx context.Context, token string) ([]ApplicableIssue, error) {
	payload := searchRequest{
		FilterFieldParams: []filterField{
			{Key: "companyIssue.companyISIN.script", Alias: "Scrip"},
			{Key: "companyIssue.companyISIN.company.name", Alias: "Company Name"},
		},
		Page:                    1,
		Size:                    10,
		SearchRoleViewConstants: viewApplicableShare,
		FilterDateParams: []filterDate{
			{Key: "minIssueOpenDate", Value: ""},
			{Key: "maxIssueCloseDate", Value: ""},
		},
	}

	var result searchResult[ApplicableIssue]
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/companyShare/applicableIssue/", token, payload, &result); err != nil {
		return nil, err
	}
	return result.Object, nil
}

// Bank resolves the caller's destination bank using the given selection
// policy (SelectFirstBank when nil). Fails with common.ErrNoResults if the
// account has no linked banks.
func (c *Client) Bank(ctx context.Context, token string, policy SelectBank) (Bank, error) {
	var banks []Bank
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/bank/", token, nil, &banks); err != nil {
		return Bank{}, err
	}
	if len(banks) == 0 {
		return Bank{}, fmt.Errorf("%w: account has no linked banks", common.ErrNoResults)
	}
	if policy == nil {
		policy = SelectFirstBank
	}
	return policy(banks), nil
}

// SearchApplicantForms lists the caller's completed application forms.
// The reconciler matches these against the local ledger by scrip.
func (c *Client) SearchApplicantForms(ctx context.Context, token string) ([]ApplicantForm, error) {
	payload := searchRequest{
		FilterFieldParams: []filterField{
			{Key: "companyShare.companyIssue.companyISIN.script", Alias: "Scrip"},
			{Key: "companyShare.companyIssue.companyISIN.company.name", Alias: "Company Name"},
		},
		Page:                    1,
		Size:                    200,
		SearchRoleViewConstants: viewApplicantFormsDone,
		FilterDateParams:        []filterDate{},
	}

	var result searchResult[ApplicantForm]
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/applicantForm/active/search/", token, payload, &result); err != nil {
		return nil, err
	}
	return result.Object, nil
}

// ApplicationStatus fetches the status detail for one submitted form.
// No fallback: if the id no longer resolves remotely the call fails with
// common.ErrNotFound.
func (c *Client) ApplicationStatus(ctx context.Context, token string, formID int) (ApplicationStatus, error) {
	var status ApplicationStatus
	url := fmt.Sprintf("%s/applicantForm/report/detail/%d", c.baseURL, formID)

	err := c.do(ctx, http.MethodGet, url, token, nil, &status)
	if err != nil {
		if isStatusCode(err, http.StatusNotFound) {
			return ApplicationStatus{}, fmt.Errorf("%w: applicant form %d", common.ErrNotFound, formID)
		}
		return ApplicationStatus{}, err
	}
	return status, nil
}
