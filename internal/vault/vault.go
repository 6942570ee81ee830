// Package vault performs symmetric encryption and decryption of account
// secret fields at rest.
//
// The key is derived once per process from a secret seed (SHA-256, 32 bytes)
// and held only in memory. Fields are encrypted with AES-256-GCM using a
// fresh random nonce per call and stored as "hex(nonce):hex(ciphertext)".
// Hex encoding guarantees the ':' delimiter cannot occur inside either part.
// GCM authentication makes a wrong key or tampered ciphertext fail loudly
// instead of decrypting to garbage.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/theleanbow/meroshare-automation/internal/common"
)

// Delimiter separates the hex-encoded nonce from the hex-encoded ciphertext.
const Delimiter = ":"

const nonceSize = 12

// Vault encrypts and decrypts secret fields with a process-lifetime key.
// The same Vault (same seed) must be used for the full lifetime of a
// process, or previously encrypted records become unreadable.
type Vault struct {
	key []byte
}

// New derives the vault key from the secret seed. An empty seed is a
// configuration error: it must be rejected at process start, not on first
// use, because a missing seed makes every encrypted record unreadable
// for the run.
func New(seed string) (*Vault, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, fmt.Errorf("%w: secret seed is empty", common.ErrConfiguration)
	}
	key := sha256.Sum256([]byte(seed))
	return &Vault{key: key[:]}, nil
}

// Encrypt encrypts plaintext with a freshly generated random nonce.
// Encrypting the same plaintext twice yields different ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce generation: %w", err)
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + Delimiter + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. A field that does not parse (missing delimiter,
// invalid hex, short nonce) fails with common.ErrMalformedCiphertext;
// an authentication failure (tampering, wrong seed) fails with
// common.ErrDecryption. The two are distinguishable with errors.Is.
func (v *Vault) Decrypt(field string) (string, error) {
	nonceHex, cipherHex, found := strings.Cut(field, Delimiter)
	if !found {
		return "", fmt.Errorf("%w: missing delimiter", common.ErrMalformedCiphertext)
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", fmt.Errorf("%w: nonce is not valid hex", common.ErrMalformedCiphertext)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: nonce length %d, want %d", common.ErrMalformedCiphertext, len(nonce), nonceSize)
	}

	ciphertext, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not valid hex", common.ErrMalformedCiphertext)
	}

	aead, err := v.aead()
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return string(plaintext), nil
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	return aead, nil
}
