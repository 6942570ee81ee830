package meroshare

// capitalEntry is one row of the public depository-participant reference
// list served by GET /capital/.
type capitalEntry struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ApplicableIssue is one open issue returned by the applicable-issue search.
type ApplicableIssue struct {
	CompanyShareID int    `json:"companyShareId"`
	Scrip          string `json:"scrip"`
	CompanyName    string `json:"companyName"`
	ShareTypeName  string `json:"shareTypeName"`
	SubGroup       string `json:"subGroup"`
}

// Bank is one of the caller's linked destination banks.
type Bank struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ApplicantForm is one previously submitted application, as returned by the
// applicant-form search.
type ApplicantForm struct {
	ApplicantFormID int    `json:"applicantFormId"`
	Scrip           string `json:"scrip"`
	CompanyName     string `json:"companyName"`
	ShareTypeName   string `json:"shareTypeName"`
	AppliedKitta    int    `json:"appliedKitta"`
}

// ApplicationStatus is the reconciliation-relevant part of a form's detail
// report.
type ApplicationStatus struct {
	StatusName string `json:"statusName"`
	Remark     string `json:"meroshareRemark"`
}

// searchResult is the paginated envelope the backend wraps search results in.
type searchResult[T any] struct {
	Object     []T `json:"object"`
	TotalCount int `json:"totalCount"`
}

// filterField and filterDate mirror the backend's search request schema.
type filterField struct {
	Key   string `json:"key"`
	Alias string `json:"alias,omitempty"`
	Value string `json:"value,omitempty"`
}

type filterDate struct {
	Key       string `json:"key"`
	Condition string `json:"condition,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Value     string `json:"value"`
}

type searchRequest struct {
	FilterFieldParams       []filterField `json:"filterFieldParams"`
	Page                    int           `json:"page"`
	Size                    int           `json:"size"`
	SearchRoleViewConstants string        `json:"searchRoleViewConstants"`
	FilterDateParams        []filterDate  `json:"filterDateParams"`
}
