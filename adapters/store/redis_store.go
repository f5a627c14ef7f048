package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ensgate/ensgate/core"
	"github.com/ensgate/ensgate/ports"
)

// RedisNonceStore is a NonceStore backed by Redis. Redis owns the
// scheduled expiry through key TTLs; Consume still re-checks the
// issuedAt delta so both enforcement paths agree on the same window.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisNonceStore creates a nonce store on an existing client
func NewRedisNonceStore(client *redis.Client, ttl time.Duration) *RedisNonceStore {
	if ttl <= 0 {
		ttl = core.ChallengeTTL
	}
	return &RedisNonceStore{
		client: client,
		prefix: "ensgate:nonce:",
		ttl:    ttl,
	}
}

var _ ports.NonceStore = (*RedisNonceStore)(nil)

// Issue generates and stores a fresh challenge with a native TTL
func (s *RedisNonceStore) Issue(ctx context.Context) (core.Challenge, error) {
	buf := make([]byte, core.NonceSize)
	if _, err := rand.Read(buf); err != nil {
		return core.Challenge{}, fmt.Errorf("generate nonce: %w", err)
	}

	challenge := core.Challenge{
		Value:    hex.EncodeToString(buf),
		IssuedAt: time.Now(),
	}

	issuedMs := strconv.FormatInt(challenge.IssuedAt.UnixMilli(), 10)
	if err := s.client.Set(ctx, s.prefix+challenge.Value, issuedMs, s.ttl).Err(); err != nil {
		return core.Challenge{}, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return challenge, nil
}

// Consume removes the challenge with GETDEL so exactly one concurrent
// caller sees it, then re-checks freshness against the stored issuedAt
func (s *RedisNonceStore) Consume(ctx context.Context, value string) (bool, error) {
	issuedMs, err := s.client.GetDel(ctx, s.prefix+value).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	ms, err := strconv.ParseInt(issuedMs, 10, 64)
	if err != nil {
		return false, nil
	}
	if time.Since(time.UnixMilli(ms)) > s.ttl {
		return false, nil
	}
	return true, nil
}

// RedisUserStore is a UserStore backed by Redis, one JSON record per
// normalized name
type RedisUserStore struct {
	client *redis.Client
	prefix string
}

// NewRedisUserStore creates a user store on an existing client
func NewRedisUserStore(client *redis.Client) *RedisUserStore {
	return &RedisUserStore{
		client: client,
		prefix: "ensgate:user:",
	}
}

var _ ports.UserStore = (*RedisUserStore)(nil)

// Upsert creates or re-binds the user record inside a WATCH
// transaction so concurrent logins for the same name cannot clobber
// each other's update
func (s *RedisUserStore) Upsert(ctx context.Context, ensName, address string) (*core.User, error) {
	key := s.prefix + ensName
	var result *core.User

	txn := func(tx *redis.Tx) error {
		now := time.Now()
		user := &core.User{}

		raw, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			user = &core.User{
				ID:        uuid.New().String(),
				EnsName:   ensName,
				Address:   address,
				CreatedAt: now,
				UpdatedAt: now,
			}
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(raw), user); err != nil {
				return fmt.Errorf("decode user record: %w", err)
			}
			if !strings.EqualFold(user.Address, address) {
				user.Address = address
				user.UpdatedAt = now
			}
		}

		payload, err := json.Marshal(user)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err != nil {
			return err
		}

		result = user
		return nil
	}

	// Retry a few times on write conflicts, the usual WATCH discipline
	for i := 0; i < 3; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
		}
	}
	return nil, fmt.Errorf("%w: upsert conflict for %s", core.ErrStoreOperationFailed, ensName)
}

// GetByName returns the user for a normalized name
func (s *RedisUserStore) GetByName(ctx context.Context, ensName string) (*core.User, error) {
	raw, err := s.client.Get(ctx, s.prefix+ensName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	user := &core.User{}
	if err := json.Unmarshal([]byte(raw), user); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return user, nil
}
