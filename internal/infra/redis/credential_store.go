package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"readnex-service/internal/domain"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldUser         = "user"
)

// CredentialStore persists the session credential group as a single Redis
// hash so the three members are written and deleted as one unit. A hash with
// missing members loads as a zero group, which the session manager treats as
// logged out.
type CredentialStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewCredentialStore(client *redis.Client, key string, ttl time.Duration) *CredentialStore {
	if key == "" {
		key = "readnex:credentials"
	}
	return &CredentialStore{client: client, key: key, ttl: ttl}
}

func (s *CredentialStore) Load(ctx context.Context) (domain.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	creds := domain.Credentials{
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
	}
	if raw, ok := fields[fieldUser]; ok && raw != "" {
		var user domain.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			// Corrupt user record: report the group as absent rather than
			// half-authenticated.
			return domain.Credentials{}, nil
		}
		creds.User = &user
	}
	return creds, nil
}

func (s *CredentialStore) Save(ctx context.Context, creds domain.Credentials) error {
	userJSON := ""
	if creds.User != nil {
		raw, err := json.Marshal(creds.User)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		userJSON = string(raw)
	}

	// One HSET keeps the group atomic; a reader sees either all three fields
	// or none.
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key,
		fieldAccessToken, creds.AccessToken,
		fieldRefreshToken, creds.RefreshToken,
		fieldUser, userJSON,
	)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
