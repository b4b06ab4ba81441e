package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	redisclient "github.com/angelmondragon/medrec-backend/pkg/redis"
	"github.com/angelmondragon/medrec-backend/pkg/security"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const resetTokenBytes = 32

// ErrInvalidResetToken is returned when a reset token is unknown, expired or already used.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

type resetKeyer interface {
	PasswordResetKey(userID string) string
}

// ResetTokens issues single-use password reset tokens. Only a digest of the
// token is kept in Redis, one outstanding token per user.
type ResetTokens struct {
	store resetStore
	keyer resetKeyer
	ttl   time.Duration
}

// NewResetTokens constructs a reset token store backed by Redis.
func NewResetTokens(client *redisclient.Client, cfg config.PasswordResetConfig) (*ResetTokens, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("password reset ttl must be positive")
	}
	return &ResetTokens{store: client, keyer: client, ttl: cfg.TTL}, nil
}

// Issue creates a token for userID, replacing any outstanding one.
func (r *ResetTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	token, err := security.GenerateToken(resetTokenBytes)
	if err != nil {
		return "", err
	}
	if err := r.store.Set(ctx, r.keyer.PasswordResetKey(userID.String()), security.HashToken(token), r.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Consume checks token for userID and invalidates the outstanding token
// whether or not it matched.
func (r *ResetTokens) Consume(ctx context.Context, userID uuid.UUID, token string) error {
	if userID == uuid.Nil || token == "" {
		return ErrInvalidResetToken
	}
	stored, err := r.store.GetDel(ctx, r.keyer.PasswordResetKey(userID.String()))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !security.TokensEqual(stored, security.HashToken(token)) {
		return ErrInvalidResetToken
	}
	return nil
}

// TTL reports how long issued tokens stay valid.
func (r *ResetTokens) TTL() time.Duration {
	return r.ttl
}
