package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/ports"
)

// MemoryNonceStore is an in-memory NonceStore. Expiry is enforced
// lazily at consume time plus a single sweep goroutine; there are no
// per-nonce timers, so a consumed key can never be double-deleted by a
// stale timer after the value is reused.
type MemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time // canonical hex -> issuedAt
	ttl    time.Duration
	done   chan struct{}
}

// NewMemoryNonceStore creates a store with the given TTL and starts
// the background sweep. Close stops the sweep.
func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	if ttl <= 0 {
		ttl = core.ChallengeTTL
	}
	s := &MemoryNonceStore{
		nonces: make(map[string]time.Time),
		ttl:    ttl,
		done:   make(chan struct{}),
	}
	go s.sweep()
	return s
}

var _ ports.NonceStore = (*MemoryNonceStore)(nil)

// Issue generates a fresh 32-byte challenge encoded as lowercase hex
func (s *MemoryNonceStore) Issue(ctx context.Context) (core.Challenge, error) {
	buf := make([]byte, core.NonceSize)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	challenge := core.Challenge{
		Value:    hex.EncodeToString(buf),
		IssuedAt: time.Now(),
	}

	s.mu.Lock()
	s.nonces[challenge.Value] = challenge.IssuedAt
	s.mu.Unlock()

	return challenge, nil
}

// Consume atomically removes value and reports whether it was present
// and fresh. Removal happens even when the nonce turns out to be
// expired: consumption is irreversible either way.
func (s *MemoryNonceStore) Consume(ctx context.Context, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issuedAt, ok := s.nonces[value]
	if !ok {
		return false, nil
	}
	delete(s.nonces, value)

	if time.Since(issuedAt) > s.ttl {
		return false, nil
	}
	return true, nil
}

// Close stops the background sweep
func (s *MemoryNonceStore) Close() {
	close(s.done)
}

func (s *MemoryNonceStore) sweep() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for value, issuedAt := range s.nonces {
				if now.Sub(issuedAt) > s.ttl {
					delete(s.nonces, value)
				}
			}
			s.mu.Unlock()
		}
	}
}

// MemoryUserStore is an in-memory UserStore keyed by normalized name
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[string]*core.User
}

// NewMemoryUserStore creates an empty user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*core.User)}
}

var _ ports.UserStore = (*MemoryUserStore)(nil)

// Upsert creates the user on first login or re-binds its address when
// the resolved owner changed. The whole read-modify-write runs under
// one lock so racing logins for the same name cannot lose an update.
func (s *MemoryUserStore) Upsert(ctx context.Context, ensName, address string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if user, ok := s.users[ensName]; ok {
		if !strings.EqualFold(user.Address, address) {
			user.Address = address
			user.UpdatedAt = now
		}
		copied := *user
		return &copied, nil
	}

	user := &core.User{
		ID:        uuid.New().String(),
		EnsName:   ensName,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[ensName] = user

	copied := *user
	return &copied, nil
}

// GetByName returns the user for a normalized name
func (s *MemoryUserStore) GetByName(ctx context.Context, ensName string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[ensName]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// Clear removes all users, used to reset state between tests
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*core.User)
}
