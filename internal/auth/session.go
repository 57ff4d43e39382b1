package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// ErrSessionNotFound means the session id is unknown, revoked or expired.
var ErrSessionNotFound = errors.New("auth: session not found")

// SessionStore is the server-side registry of live sessions. A session
// token is honoured only while its id is present here.
type SessionStore interface {
	Create(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (int64, error)
	Revoke(ctx context.Context, sessionID string) error
}

// NewSessionID returns a fresh, URL-safe session id.
func NewSessionID() string {
	return xid.New().String()
}

// =========================================================================
// IN-MEMORY STORE
// =========================================================================

type memorySession struct {
	userID    int64
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. Sessions do not
// survive a restart and are not shared between replicas.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, sessionID string, userID int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.sessions[sessionID] = memorySession{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Lookup(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sessionID)
		return 0, ErrSessionNotFound
	}
	return sess.userID, nil
}

func (s *MemorySessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Len reports the number of sessions held, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked drops expired sessions. Called on every Create so the map
// cannot grow without bound.
func (s *MemorySessionStore) sweepLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

// =========================================================================
// REDIS STORE
// =========================================================================

const redisSessionPrefix = "catalog:session:"

// RedisSessionStore keeps sessions in Redis with a TTL per key, so expiry
// is handled by Redis and sessions are shared across replicas.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func (s *RedisSessionStore) Create(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, redisSessionPrefix+sessionID, userID, ttl).Err(); err != nil {
		return fmt.Errorf("auth: storing session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Lookup(ctx context.Context, sessionID string) (int64, error) {
	val, err := s.rdb.Get(ctx, redisSessionPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("auth: loading session: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: corrupt session value %q: %w", val, err)
	}
	return userID, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, redisSessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("auth: revoking session: %w", err)
	}
	return nil
}

// NewRedisClient creates and pings a Redis client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("auth: connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
