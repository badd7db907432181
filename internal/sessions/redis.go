package sessions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is used when no prefix is configured.
const DefaultKeyPrefix = "plsync-sess"

// RedisStore keeps each credential as a hash under "<prefix>:<sessionID>".
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps sessions until deleted.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// OpenRedisStore parses a redis:// URL and verifies the connection.
func OpenRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: session.redis_url: %v", shared.ErrInvalidConfig, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis: %w", shared.ErrServiceUnavailable, err)
	}
	return NewRedisStore(client, prefix, 0), nil
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + ":" + sessionID
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*models.Credential, error) {
	fields, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}

	cred := &models.Credential{
		AccessToken:  fields["access_token"],
		RefreshToken: fields["refresh_token"],
		TokenType:    fields["token_type"],
		Scope:        fields["scope"],
	}
	if cred.ExpiresIn, err = parseInt(fields["expires_in"]); err != nil {
		return nil, fmt.Errorf("%w: expires_in: %v", shared.ErrSessionInvalid, err)
	}
	if cred.IssuedAt, err = parseInt(fields["issued_at"]); err != nil {
		return nil, fmt.Errorf("%w: issued_at: %v", shared.ErrSessionInvalid, err)
	}
	return cred, nil
}

// Set replaces the whole hash so fields from an older record never linger.
func (r *RedisStore) Set(ctx context.Context, sessionID string, cred *models.Credential) error {
	if sessionID == "" || cred == nil {
		return fmt.Errorf("%w: session id and credential are required", shared.ErrBadRequest)
	}

	key := r.key(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"access_token", cred.AccessToken,
			"refresh_token", cred.RefreshToken,
			"token_type", cred.TokenType,
			"scope", cred.Scope,
			"expires_in", cred.ExpiresIn,
			"issued_at", cred.IssuedAt,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
