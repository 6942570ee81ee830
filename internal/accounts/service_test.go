package accounts

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theleanbow/meroshare-automation/internal/common"
	"github.com/theleanbow/meroshare-automation/internal/vault"
)

func newTestService(t *testing.T, seed string) *Service {
	t.Helper()
	v, err := vault.New(seed)
	require.NoError(t, err)
	repo := NewJSONFileRepository(filepath.Join(t.TempDir(), "accounts.json"))
	return NewService(repo, v)
}

func testCreds() Credentials {
	return Credentials{
		FullName:  "Ram Thapa",
		BOID:      "1301230000123456",
		DPID:      "130",
		Username:  "u1",
		Password:  "hunter2",
		CRNNumber: "CRN-99",
		PIN:       "4321",
	}
}

func TestEnroll_PersistsCiphertextOnly(t *testing.T) {
	s := newTestService(t, "s3cr3t")
	ctx := context.Background()

	acc, err := s.Enroll(ctx, testCreds())
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)

	stored, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	// Secret fields at rest must be ciphertext, never the plaintext.
	for _, field := range []string{stored[0].Password, stored[0].CRNNumber, stored[0].PIN} {
		assert.NotContains(t, []string{"hunter2", "CRN-99", "4321"}, field)
		assert.Contains(t, field, vault.Delimiter)
	}
	// Non-secret fields stay readable.
	assert.Equal(t, "u1", stored[0].Username)
	assert.Equal(t, "130", stored[0].DPID)
}

func TestEnroll_MissingField(t *testing.T) {
	s := newTestService(t, "s3cr3t")

	creds := testCreds()
	creds.PIN = ""

	_, err := s.Enroll(context.Background(), creds)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfiguration)
	assert.Contains(t, err.Error(), "pin")
}

func TestDecryptAll_RoundTrip(t *testing.T) {
	s := newTestService(t, "s3cr3t")
	ctx := context.Background()

	_, err := s.Enroll(ctx, testCreds())
	require.NoError(t, err)

	creds, failures, err := s.DecryptAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, creds, 1)
	assert.Equal(t, "hunter2", creds[0].Password)
	assert.Equal(t, "CRN-99", creds[0].CRNNumber)
	assert.Equal(t, "4321", creds[0].PIN)
}

func TestDecryptAll_IdentifiesBadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	repo := NewJSONFileRepository(path)

	good, err := vault.New("s3cr3t")
	require.NoError(t, err)
	other, err := vault.New("different-seed")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = NewService(repo, good).Enroll(ctx, testCreds())
	require.NoError(t, err)

	badCreds := testCreds()
	badCreds.Username = "u2"
	_, err = NewService(repo, other).Enroll(ctx, badCreds)
	require.NoError(t, err)

	creds, failures, err := NewService(repo, good).DecryptAll(ctx)
	require.NoError(t, err)

	require.Len(t, creds, 1)
	assert.Equal(t, "u1", creds[0].Username)

	require.Len(t, failures, 1)
	assert.Equal(t, "u2", failures[0].Account.Username)
	assert.ErrorIs(t, failures[0].Err, common.ErrDecryption)
	assert.True(t, strings.Contains(failures[0].Err.Error(), "u2"))
}

func TestRemove_ByStableID(t *testing.T) {
	s := newTestService(t, "s3cr3t")
	ctx := context.Background()

	acc, err := s.Enroll(ctx, testCreds())
	require.NoError(t, err)

	second := testCreds()
	second.Username = "u2"
	acc2, err := s.Enroll(ctx, second)
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, acc.ID))

	stored, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, acc2.ID, stored[0].ID)

	err = s.Remove(ctx, acc.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
