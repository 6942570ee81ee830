// Package ledger persists the history of submitted share applications.
// The ledger is append-only at submission time; reconciliation later
// overwrites status fields in place, keyed by (username, company).
package ledger

import (
	"time"

	"github.com/theleanbow/meroshare-automation/internal/common"
)

// Entry is one submitted application. Company is the scrip symbol and is
// matched case-insensitively. StatusName and Remark stay empty until a
// reconciliation run fills them in.
type Entry struct {
	Company  string    `json:"company"`
	BOID     string    `json:"boid"`
	Username string    `json:"username"`
	FullName string    `json:"fullname"`
	Units    int       `json:"units"`
	Date     time.Time `json:"date"`

	StatusName string `json:"statusName,omitempty"`
	Remark     string `json:"meroshareRemark,omitempty"`
}

// Matches reports whether the entry belongs to the given (username,
// company) reconciliation key.
func (e *Entry) Matches(username, company string) bool {
	return e.Username == username && common.EqualFold(e.Company, company)
}
