package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"synapse-service/internal/client"
	"synapse-service/internal/models"
	"synapse-service/internal/util"
)

const (
	sessionDataPrefix = "synapse_session:"
	identityPrefix    = "synapse_identity:"

	opTimeout = 5 * time.Second
)

// ErrSessionNotFound is returned when a session id names no live session.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the server-side session bag and the authenticated identity.
type SessionStore interface {
	// Regenerate destroys oldID (if any) and returns a fresh session id.
	Regenerate(ctx context.Context, oldID string) (string, error)
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	Destroy(ctx context.Context, sessionID string) error
	SetIdentity(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	GetIdentity(ctx context.Context, sessionID string) (string, error)
}

// NewSessionID returns 32 lowercase hex characters.
func NewSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var (
	_ SessionStore = (*SessionCache)(nil)
	_ SessionStore = (*MemoryStore)(nil)
)

type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) Regenerate(ctx context.Context, oldID string) (string, error) {
	if oldID != "" {
		if err := c.Destroy(ctx, oldID); err != nil {
			return "", err
		}
	}
	return NewSessionID(), nil
}

func (c *SessionCache) Save(ctx context.Context, session *models.Session, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := c.client.Set(ctx, sessionDataPrefix+session.SessionID, string(data), ttl); err != nil {
		util.Error("Failed to set session data",
			zap.String("session_id", session.SessionID),
			zap.Duration("ttl", ttl),
			zap.Error(err))
		return fmt.Errorf("failed to set session data: %w", err)
	}

	util.Debug("Session data set",
		zap.String("session_id", session.SessionID),
		zap.Duration("ttl", ttl))
	return nil
}

func (c *SessionCache) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, sessionDataPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		util.Error("Failed to get session data", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get session data: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	return &session, nil
}

// Destroy removes the session bag and identity in one round trip.
func (c *SessionCache) Destroy(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipe := c.client.Pipeline()
	pipe.Del(ctx, sessionDataPrefix+sessionID)
	pipe.Del(ctx, identityPrefix+sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to destroy session", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	util.Debug("Session destroyed", zap.String("session_id", sessionID))
	return nil
}

func (c *SessionCache) SetIdentity(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, identityPrefix+sessionID, userID, ttl); err != nil {
		return fmt.Errorf("failed to write identity: %w", err)
	}
	return nil
}

func (c *SessionCache) GetIdentity(ctx context.Context, sessionID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	userID, err := c.client.Get(ctx, identityPrefix+sessionID)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to read identity: %w", err)
	}
	return userID, nil
}
