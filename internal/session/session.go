// Package session resolves bearer tokens issued by the credential subsystem
// into identities.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jeremyjsx/inkwell/internal/authz"
)

const keyPrefix = "session:"

var (
	// ErrNoSession is returned for tokens that are unknown or expired.
	ErrNoSession = errors.New("no such session")
	// ErrInvalidSession is returned when a stored session cannot be turned
	// into an identity.
	ErrInvalidSession = errors.New("invalid session")
)

// Data is the session payload stored under session:<token>.
type Data struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func (d Data) identity() (*authz.Identity, error) {
	role, err := authz.ParseRole(d.Role)
	if err != nil {
		return nil, err
	}
	if d.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidSession)
	}
	return &authz.Identity{UserID: d.UserID, Role: role}, nil
}

type Store interface {
	Lookup(ctx context.Context, token string) (*authz.Identity, error)
}

type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Lookup(ctx context.Context, token string) (*authz.Identity, error) {
	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrInvalidSession, err)
	}
	return data.identity()
}

// Put stores a session. Tokens are normally written by the credential
// subsystem; this exists for seeding and tests.
func (s *RedisStore) Put(ctx context.Context, token string, data Data, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// MemoryStore backs development runs without Redis.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Data
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Data)}
}

func (s *MemoryStore) Put(token string, data Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = data
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (*authz.Identity, error) {
	s.mu.RLock()
	data, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return data.identity()
}
