package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/theleanbow/meroshare-automation/internal/vault"
)

// Service moves accounts between their at-rest and in-memory forms.
// Enrollment takes plaintext in and persists ciphertext; reads decrypt
// transiently and never write plaintext back.
type Service struct {
	repo  Repository
	vault *vault.Vault
}

func NewService(repo Repository, v *vault.Vault) *Service {
	return &Service{repo: repo, vault: v}
}

// Enroll validates the plaintext credentials, encrypts the secret fields,
// assigns a stable id and persists the record. Returns the stored (at-rest)
// form.
func (s *Service) Enroll(ctx context.Context, creds Credentials) (Account, error) {
	if err := creds.Validate(); err != nil {
		return Account{}, err
	}

	password, err := s.vault.Encrypt(creds.Password)
	if err != nil {
		return Account{}, fmt.Errorf("encrypting password: %w", err)
	}
	crn, err := s.vault.Encrypt(creds.CRNNumber)
	if err != nil {
		return Account{}, fmt.Errorf("encrypting crnNumber: %w", err)
	}
	pin, err := s.vault.Encrypt(creds.PIN)
	if err != nil {
		return Account{}, fmt.Errorf("encrypting pin: %w", err)
	}

	acc := Account{
		ID:        uuid.NewString(),
		FullName:  creds.FullName,
		BOID:      creds.BOID,
		DPID:      creds.DPID,
		Username:  creds.Username,
		Password:  password,
		CRNNumber: crn,
		PIN:       pin,
	}

	if err := s.repo.Add(ctx, acc); err != nil {
		return Account{}, fmt.Errorf("storing account: %w", err)
	}
	return acc, nil
}

// Decrypt produces the in-memory plaintext form of one stored record.
func (s *Service) Decrypt(acc Account) (Credentials, error) {
	password, err := s.vault.Decrypt(acc.Password)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting password for %q: %w", acc.Username, err)
	}
	crn, err := s.vault.Decrypt(acc.CRNNumber)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting crnNumber for %q: %w", acc.Username, err)
	}
	pin, err := s.vault.Decrypt(acc.PIN)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting pin for %q: %w", acc.Username, err)
	}

	return Credentials{
		ID:        acc.ID,
		FullName:  acc.FullName,
		BOID:      acc.BOID,
		DPID:      acc.DPID,
		Username:  acc.Username,
		Password:  password,
		CRNNumber: crn,
		PIN:       pin,
	}, nil
}

// DecryptFailure identifies which stored record could not be decrypted
// during a bulk load. A corrupt record must not silently abort the whole
// load; the driver reports and skips it.
type DecryptFailure struct {
	Account Account
	Err     error
}

// DecryptAll loads every stored record and decrypts each one, collecting
// per-record failures instead of aborting.
func (s *Service) DecryptAll(ctx context.Context) ([]Credentials, []DecryptFailure, error) {
	accs, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading accounts: %w", err)
	}

	var creds []Credentials
	var failures []DecryptFailure
	for _, acc := range accs {
		c, err := s.Decrypt(acc)
		if err != nil {
			failures = append(failures, DecryptFailure{Account: acc, Err: err})
			continue
		}
		creds = append(creds, c)
	}
	return creds, failures, nil
}

// List returns the stored records with secret fields still ciphertext.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Remove deletes a record by its stable id.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.Remove(ctx, id)
}
