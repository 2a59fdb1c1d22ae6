package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
)

// Store is a credential store kept entirely in Redis. It returns the same
// sentinel errors as the PostgreSQL repository.
type Store struct {
	cache  *Cache
	client *redis.Client
}

// NewStore returns a Redis-backed store on top of c.
func NewStore(c *Cache) *Store {
	return &Store{cache: c, client: c.client}
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// CreateUser stores a user, rejecting duplicate emails.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	ok, err := s.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if !ok {
		return repository.ErrEmailExists
	}

	if err := s.client.HSet(ctx, userKey(user.ID), userFields(user.ToCachedUser())).Err(); err != nil {
		s.client.Del(ctx, emailKey(user.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	cmd := s.client.HGetAll(ctx, userKey(id))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	if len(result) == 0 {
		return nil, repository.ErrUserNotFound
	}

	var cached model.CachedUser
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return cached.ToUser(), nil
}

// GetUserByEmail retrieves a user by exact email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// The index is keyed by a truncated hash; confirm the exact address.
	if user.Email != email {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes a user and every secret they own.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	secretIDs, err := s.client.ZRange(ctx, ownedKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list owned secrets: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, sid := range secretIDs {
			pipe.Del(ctx, secretKey(sid))
		}
		pipe.Del(ctx, ownedKey(id), userKey(id), emailKey(user.Email))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return nil
}

func userFields(c *model.CachedUser) map[string]any {
	return map[string]any{
		"id":            c.ID,
		"email":         c.Email,
		"password_hash": c.PasswordHash,
		"created_at":    c.CreatedAt,
	}
}
