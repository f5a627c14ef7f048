package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// NonceSize is the number of random bytes in a challenge nonce
	NonceSize = 32

	// NonceHexLength is the length of a nonce in its canonical encoding
	NonceHexLength = NonceSize * 2

	// ChallengeTTL bounds both nonce lifetime in the store and the
	// timestamp window checked at verification. The two checks must
	// share this constant.
	ChallengeTTL = 10 * time.Minute

	// NameSuffix is the canonical top-level suffix appended to bare names
	NameSuffix = ".eth"
)

// LoginMessage builds the exact text the client signs. The byte layout
// is part of the security contract: verification reconstructs this
// string from the submitted fields and any deviation breaks recovery.
func LoginMessage(ensName, nonceHex, timestamp string) string {
	return fmt.Sprintf("Autenticación ENS\n\nNombre: %s\nNonce: %s\nTimestamp: %s", ensName, nonceHex, timestamp)
}

// NormalizeName lowercases a name and ensures the canonical suffix
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasSuffix(name, NameSuffix) {
		name += NameSuffix
	}
	return name
}

// IsCanonicalNonce reports whether s is a nonce in the one accepted
// wire form: exactly 64 lowercase hex characters. Alternate encodings
// (byte arrays, comma-joined decimals, uppercase hex) are rejected at
// the boundary instead of being reconciled.
func IsCanonicalNonce(s string) bool {
	if len(s) != NonceHexLength {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
