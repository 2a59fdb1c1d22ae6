package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
)

// maxUpdateRetries bounds optimistic-lock retries in UpdateSecret.
const maxUpdateRetries = 16

// CreateSecret stores a secret and indexes it under its owner.
func (s *Store) CreateSecret(ctx context.Context, secret *model.Secret) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, secretKey(secret.ID), secretFields(secret.ToCachedSecret()))
		pipe.ZAdd(ctx, ownedKey(secret.OwnerID), redis.Z{
			Score:  createdScore(secret),
			Member: secret.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create secret: %w", err)
	}
	return nil
}

// GetSecret retrieves a secret by ID, scoped to its owner.
func (s *Store) GetSecret(ctx context.Context, ownerID, id string) (*model.Secret, error) {
	secret, err := readSecret(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if secret.OwnerID != ownerID {
		return nil, repository.ErrSecretNotFound
	}
	return secret, nil
}

// ListSecrets returns a page of an owner's secrets, newest first.
// Without a search term the page is cut by the sorted set; with one,
// every owned secret is loaded and filtered in process.
func (s *Store) ListSecrets(ctx context.Context, ownerID string, filter repository.SecretFilter) ([]*model.Secret, error) {
	filter = filter.Normalize()

	start, stop := int64(0), int64(-1)
	if filter.Search == "" {
		start = int64(filter.Offset)
		stop = start + int64(filter.Limit) - 1
	}

	ids, err := s.client.ZRevRange(ctx, ownedKey(ownerID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}

	secrets, err := s.loadSecrets(ctx, ids)
	if err != nil {
		return nil, err
	}

	if filter.Search == "" {
		repository.SortNewestFirst(secrets)
		return secrets, nil
	}
	return filter.Apply(secrets), nil
}

// UpdateSecret applies mutate to the owner's secret under WATCH/MULTI,
// retrying when a concurrent writer wins the race.
func (s *Store) UpdateSecret(ctx context.Context, ownerID, id string, mutate func(*model.Secret) error) (*model.Secret, error) {
	key := secretKey(id)
	var updated *model.Secret

	txf := func(tx *redis.Tx) error {
		current, err := readSecret(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.OwnerID != ownerID {
			return repository.ErrSecretNotFound
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.CreatedAt = current.CreatedAt

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, secretFields(next.ToCachedSecret()))
			return nil
		})
		if err != nil {
			return err
		}

		updated = next
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to update secret: too much contention")
}

// DeleteSecret removes an owner's secret and its index entry.
func (s *Store) DeleteSecret(ctx context.Context, ownerID, id string) error {
	key := secretKey(id)

	txf := func(tx *redis.Tx) error {
		owner, err := tx.HGet(ctx, key, "owner_id").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return repository.ErrSecretNotFound
			}
			return fmt.Errorf("failed to read secret owner: %w", err)
		}
		if owner != ownerID {
			return repository.ErrSecretNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, ownedKey(ownerID), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}

	return fmt.Errorf("failed to delete secret: too much contention")
}

// SampleCiphertexts returns up to limit stored ciphertexts, newest first.
func (s *Store) SampleCiphertexts(ctx context.Context, limit int) ([]repository.CiphertextRef, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, secretKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, secretIDFromKey(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan secrets: %w", err)
	}

	secrets, err := s.loadSecrets(ctx, ids)
	if err != nil {
		return nil, err
	}

	repository.SortNewestFirst(secrets)
	if limit >= 0 && len(secrets) > limit {
		secrets = secrets[:limit]
	}

	refs := make([]repository.CiphertextRef, 0, len(secrets))
	for _, secret := range secrets {
		refs = append(refs, repository.CiphertextRef{ID: secret.ID, Ciphertext: secret.Ciphertext})
	}
	return refs, nil
}

// loadSecrets fetches secret hashes in one pipeline. Ids whose hash has
// vanished in the meantime are skipped.
func (s *Store) loadSecrets(ctx context.Context, ids []string) ([]*model.Secret, error) {
	secrets := make([]*model.Secret, 0, len(ids))
	if len(ids) == 0 {
		return secrets, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, secretKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	for _, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		var cached model.CachedSecret
		if err := cmd.Scan(&cached); err != nil {
			return nil, fmt.Errorf("failed to decode secret: %w", err)
		}
		secrets = append(secrets, cached.ToSecret())
	}

	return secrets, nil
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// readSecret loads one secret hash through the client or a watching tx.
func readSecret(ctx context.Context, c hashReader, id string) (*model.Secret, error) {
	cmd := c.HGetAll(ctx, secretKey(id))
	result, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	if len(result) == 0 {
		return nil, repository.ErrSecretNotFound
	}

	var cached model.CachedSecret
	if err := cmd.Scan(&cached); err != nil {
		return nil, fmt.Errorf("failed to decode secret: %w", err)
	}
	return cached.ToSecret(), nil
}

func createdScore(secret *model.Secret) float64 {
	return float64(secret.CreatedAt.UnixMicro())
}

func secretFields(c *model.CachedSecret) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"owner_id":   c.OwnerID,
		"title":      c.Title,
		"login_name": c.LoginName,
		"ciphertext": c.Ciphertext,
		"url":        c.URL,
		"has_url":    c.HasURL,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}
