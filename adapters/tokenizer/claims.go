package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the authenticated identity
type SessionClaims struct {
	jwt.RegisteredClaims
	EnsName string `json:"ensName"`
	Address string `json:"address"`
	UserID  string `json:"userId"`
}
