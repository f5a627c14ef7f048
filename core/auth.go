package core

import "time"

// Challenge represents a single-use authentication challenge
type Challenge struct {
	Value    string    // Random nonce, canonical lowercase hex
	IssuedAt time.Time // When the challenge was created
}

// AuthRequest carries the client-submitted login proof.
// Nothing in it is trusted until verification completes.
type AuthRequest struct {
	EnsName   string // Claimed ENS name (or a raw address, see reverse fallback)
	Signature string // Hex-encoded signature over the canonical message
	Nonce     string // Must match a live challenge, canonical hex
	Timestamp string // String-encoded milliseconds since epoch
}

// ValidationResult is the outcome of verifying a login proof
type ValidationResult struct {
	IsValid          bool
	RecoveredAddress string // Checksummed signer address, set iff recovery succeeded
	EnsName          string // The name actually proven, may differ from the claimed one
	Err              error  // Set iff IsValid is false
}

// Session is the authenticated identity carried by a session credential
type Session struct {
	UserID    string
	EnsName   string
	Address   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// User is the account record bound to an ENS name
type User struct {
	ID        string    `json:"id"`
	EnsName   string    `json:"ensName"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Profile carries the auxiliary data fetched after a successful login.
// All fields degrade to zero values when upstream lookups fail.
type Profile struct {
	Balance    string `json:"balance"`    // ETH balance as a decimal string
	BalanceUSD string `json:"balanceUSD"` // USD value of the balance
	Avatar     string `json:"avatar,omitempty"`
}
