package tokenizer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/ports"
)

// AudienceSession tags session credentials so tokens minted for other
// purposes can never pass verification here
const AudienceSession = "ens:session"

// JWTTokenizer implements the Tokenizer interface with ES256 JWTs
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a tokenizer signing with the given key
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// SessionToToken converts a Session to a signed JWT
func (j *JWTTokenizer) SessionToToken(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		EnsName: session.EnsName,
		Address: session.Address,
		UserID:  session.UserID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToSession verifies a JWT and returns the session it carries.
// Tampered, expired or wrong-audience tokens fail with core.ErrInvalidToken.
func (j *JWTTokenizer) TokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.Session{
		UserID:    claims.UserID,
		EnsName:   claims.EnsName,
		Address:   claims.Address,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
