// Package service implements the challenge/verify login flow.
//
// Ownership is established through an ordered policy: a name with no
// resolver configured is accepted on the strength of the signature
// alone (names registered off the primary registry can still prove
// cooperative signing), then a registry-owner match, then a
// forward-resolution match. The first relaxation is deliberate and can
// be disabled with WithUnresolvedNamePolicy(false).
package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/internal/eth"
	"github.com/ensgate/ensgate/ports"
)

// DefaultSessionTTL is how long an issued session credential stays valid
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthService orchestrates nonce issuance, signature verification,
// ownership resolution and session minting
type AuthService struct {
	nonces    ports.NonceStore
	users     ports.UserStore
	resolver  ports.NameResolver
	profiles  ports.ProfileReader
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher

	challengeTTL         time.Duration
	sessionTTL           time.Duration
	allowUnresolvedNames bool
}

// Option configures an AuthService
type Option func(*AuthService)

// WithSessionTTL overrides the session credential lifetime
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithUnresolvedNamePolicy controls whether a name with no resolver is
// accepted on a valid signature alone
func WithUnresolvedNamePolicy(allow bool) Option {
	return func(s *AuthService) { s.allowUnresolvedNames = allow }
}

// NewAuthService creates a new authentication service. profiles and
// eventPub may be nil; both are auxiliary and never gate a login.
func NewAuthService(
	nonces ports.NonceStore,
	users ports.UserStore,
	resolver ports.NameResolver,
	profiles ports.ProfileReader,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		nonces:               nonces,
		users:                users,
		resolver:             resolver,
		profiles:             profiles,
		tokenizer:            tokenizer,
		eventPub:             eventPub,
		challengeTTL:         core.ChallengeTTL,
		sessionTTL:           DefaultSessionTTL,
		allowUnresolvedNames: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is the outcome of a successful login
type LoginResult struct {
	Token   string
	User    *core.User
	Profile core.Profile
	EnsName string // Normalized name that was proven
	Address string // Checksummed signer address
}

// CreateChallenge issues a fresh single-use nonce
func (s *AuthService) CreateChallenge(ctx context.Context) (core.Challenge, error) {
	return s.nonces.Issue(ctx)
}

// Login runs the full verification state machine for a submitted
// proof. Failures are terminal for the submitted nonce: it is consumed
// in step one regardless of what happens afterwards, so a replay with
// the same value always fails.
func (s *AuthService) Login(ctx context.Context, req core.AuthRequest) (*LoginResult, error) {
	if req.EnsName == "" || req.Signature == "" || req.Nonce == "" || req.Timestamp == "" {
		return nil, core.ErrMissingFields
	}

	// Single accepted wire form for nonces; alternate encodings are a
	// parse error, not something to reconcile
	if !core.IsCanonicalNonce(req.Nonce) {
		return nil, fmt.Errorf("%w: nonce must be %d lowercase hex characters", core.ErrNonceInvalid, core.NonceHexLength)
	}

	ok, err := s.nonces.Consume(ctx, req.Nonce)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNonceInvalid
	}

	ms, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable timestamp %q", core.ErrTimestampExpired, req.Timestamp)
	}
	if time.Since(time.UnixMilli(ms)) > s.challengeTTL {
		return nil, core.ErrTimestampExpired
	}

	// Wallets sometimes submit the account address where the name
	// belongs; fall back to the address's primary name
	claimed := req.EnsName
	if common.IsHexAddress(claimed) {
		primary, err := s.resolver.ReverseResolve(ctx, common.HexToAddress(claimed))
		if err != nil {
			return nil, fmt.Errorf("%w: reverse lookup for %s: %v", core.ErrUpstreamResolution, shortAddr(claimed), err)
		}
		if primary == "" {
			return nil, fmt.Errorf("%w: address %s has no primary ENS name", core.ErrNotNameOwner, shortAddr(claimed))
		}
		claimed = primary
	}

	name := core.NormalizeName(claimed)
	message := core.LoginMessage(name, req.Nonce, req.Timestamp)

	signer, err := eth.RecoverAddress(message, req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}

	if err := s.checkOwnership(ctx, name, signer); err != nil {
		return nil, err
	}

	rebound := false
	if prev, err := s.users.GetByName(ctx, name); err == nil {
		rebound = !strings.EqualFold(prev.Address, signer.Hex())
	}

	user, err := s.users.Upsert(ctx, name, signer.Hex())
	if err != nil {
		return nil, err
	}

	var profile core.Profile
	if s.profiles != nil {
		profile = s.profiles.Fetch(ctx, signer, name)
	}

	now := time.Now()
	session := &core.Session{
		UserID:    user.ID,
		EnsName:   name,
		Address:   signer.Hex(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, user, rebound); err != nil {
			// The login already succeeded; other instances just miss
			// the notification
			log.Printf("warning: failed to publish login event: %v", err)
		}
	}

	return &LoginResult{
		Token:   token,
		User:    user,
		Profile: profile,
		EnsName: name,
		Address: signer.Hex(),
	}, nil
}

// VerifySession validates a session credential and returns its user
func (s *AuthService) VerifySession(ctx context.Context, token string) (*core.User, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByName(ctx, session.EnsName)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// checkOwnership applies the ordered acceptance policy. First match wins:
//
//  1. no resolver configured: accept provisionally (if allowed)
//  2. registry owner equals the signer
//  3. forward resolution equals the signer
//
// Otherwise the login is rejected. Lookup failures surface as an
// upstream error only when no earlier rule already accepted.
func (s *AuthService) checkOwnership(ctx context.Context, name string, signer common.Address) error {
	resolverAddr, presenceErr := s.resolver.ResolverAddress(ctx, name)
	if presenceErr == nil && resolverAddr == (common.Address{}) {
		if s.allowUnresolvedNames {
			return nil
		}
		return fmt.Errorf("%w: %s has no resolver configured", core.ErrNotNameOwner, name)
	}

	// Owner and forward lookups are independent reads
	var (
		owner, fwd       common.Address
		ownerErr, fwdErr error
		wg               sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		owner, ownerErr = s.resolver.ResolveOwner(ctx, name)
	}()
	go func() {
		defer wg.Done()
		fwd, fwdErr = s.resolver.ResolveAddr(ctx, name)
	}()
	wg.Wait()

	if ownerErr == nil && owner == signer {
		return nil
	}
	if fwdErr == nil && fwd == signer {
		return nil
	}

	if presenceErr != nil || ownerErr != nil || fwdErr != nil {
		return fmt.Errorf("%w: could not verify ownership of %s", core.ErrUpstreamResolution, name)
	}

	return fmt.Errorf("%w: signer %s does not control %s (owner %s, resolves to %s)",
		core.ErrNotNameOwner, shortAddr(signer.Hex()), name, shortAddr(owner.Hex()), shortAddr(fwd.Hex()))
}

// shortAddr truncates an address for error messages, enough to debug
// without echoing the full value everywhere
func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10] + "..."
}
