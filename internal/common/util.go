package common

import (
	"strings"
)

// WipeByteArray zeros the buffer in place. Safe to call with nil.
// Used to shorten the lifetime of decrypted secrets in memory.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// EqualFold reports whether two identifiers match case-insensitively after
// trimming surrounding whitespace. The remote platform is inconsistent about
// casing of scrip symbols and participant codes, so all matching goes
// through this helper.
func EqualFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
