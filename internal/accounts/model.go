// Package accounts manages enrolled MeroShare identities: the encrypted
// at-rest records, their storage backends, and the service that moves
// secrets between ciphertext and transient plaintext.
package accounts

import (
	"fmt"
	"strings"

	"github.com/theleanbow/meroshare-automation/internal/common"
)

// Account is the at-rest form of one enrolled identity. Password, CRNNumber
// and PIN are always ciphertext here; a record read from storage never
// carries plaintext secrets.
type Account struct {
	ID        string `json:"id"`
	FullName  string `json:"fullname"`
	BOID      string `json:"boid"`
	DPID      string `json:"dpId"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CRNNumber string `json:"crnNumber"`
	PIN       string `json:"pin"`
}

// Credentials is the in-memory plaintext form used by the workflow.
// It is never persisted; the two forms are separate types so a plaintext
// record cannot be written back by accident.
type Credentials struct {
	ID        string
	FullName  string
	BOID      string
	DPID      string
	Username  string
	Password  string
	CRNNumber string
	PIN       string
}

// Validate checks that every field the workflow depends on is present.
// A missing field is a configuration problem with the stored record, not a
// runtime failure.
func (c *Credentials) Validate() error {
	missing := []string{}
	for name, value := range map[string]string{
		"dpId":      c.DPID,
		"username":  c.Username,
		"password":  c.Password,
		"crnNumber": c.CRNNumber,
		"pin":       c.PIN,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required credentials: %s",
			common.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Wipe overwrites the secret fields. Called by the driver once an
// account's workflow run finishes.
func (c *Credentials) Wipe() {
	c.Password = ""
	c.CRNNumber = ""
	c.PIN = ""
}
