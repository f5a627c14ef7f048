package ports

import (
	"context"

	"github.com/ensgate/ensgate/core"
)

// NonceStore issues and consumes single-use challenges. Consume is an
// atomic check-and-delete: for any value, exactly one concurrent
// caller may observe true.
type NonceStore interface {
	// Issue generates, stores and returns a fresh challenge
	Issue(ctx context.Context) (core.Challenge, error)

	// Consume removes the challenge and reports whether it was present
	// and still inside its TTL
	Consume(ctx context.Context, value string) (bool, error)
}

// UserStore persists user records keyed by normalized ENS name
type UserStore interface {
	// Upsert creates the user on first login or re-binds its address,
	// atomically per name
	Upsert(ctx context.Context, ensName, address string) (*core.User, error)

	// GetByName returns the user for a normalized name, or core.ErrUserNotFound
	GetByName(ctx context.Context, ensName string) (*core.User, error)
}
