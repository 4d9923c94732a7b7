// internal/wizard/store.go
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oikos-server/internal/common/database"
	"oikos-server/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "wizard:session:"

// SessionStore persists wizard sessions in Redis with a TTL. Expiry is the
// server-side equivalent of closing the modal: the next open starts from
// step 1 with declared defaults.
type SessionStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSessionStore(rdb *database.RedisClient, ttl time.Duration) *SessionStore {
	return &SessionStore{redis: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save writes the session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl); err != nil {
		return errors.NewQueryExecutionFailedError("session save", err)
	}
	return nil
}

// Load fetches a session by id. Missing and expired sessions are
// indistinguishable here; both come back as SESSION_NOT_FOUND.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(id))
	if err == redis.Nil {
		return nil, errors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("session load", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &sess, nil
}

// Delete discards a session. Used on close/cancel and on terminal success
// acknowledgement.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id)); err != nil {
		return errors.NewQueryExecutionFailedError("session delete", err)
	}
	return nil
}
