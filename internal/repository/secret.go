package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lockbox/lockbox/internal/model"
)

// ErrSecretNotFound is returned when no secret matches both id and owner.
var ErrSecretNotFound = errors.New("secret not found")

const secretColumns = `id, owner_id, title, login_name, ciphertext, url, created_at, updated_at`

// CreateSecret inserts a new secret.
func (r *Repository) CreateSecret(ctx context.Context, secret *model.Secret) error {
	query := `
		INSERT INTO secrets (id, owner_id, title, login_name, ciphertext, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		secret.ID,
		secret.OwnerID,
		secret.Title,
		secret.LoginName,
		secret.Ciphertext,
		secret.URL,
		secret.CreatedAt,
		secret.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create secret: %w", err)
	}

	return nil
}

// GetSecret retrieves a secret by ID, scoped to its owner.
func (r *Repository) GetSecret(ctx context.Context, ownerID, id string) (*model.Secret, error) {
	query := `SELECT ` + secretColumns + `
		FROM secrets
		WHERE id = $1 AND owner_id = $2
	`

	secret, err := scanSecret(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}

	return secret, nil
}

// ListSecrets returns a page of an owner's secrets, newest first.
func (r *Repository) ListSecrets(ctx context.Context, ownerID string, filter SecretFilter) ([]*model.Secret, error) {
	filter = filter.Normalize()

	query := `SELECT ` + secretColumns + `
		FROM secrets
		WHERE owner_id = $1
	`
	args := []any{ownerID}
	argIndex := 2

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR login_name ILIKE $%d)", argIndex, argIndex)
		args = append(args, likePattern(filter.Search))
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	secrets := make([]*model.Secret, 0)
	for rows.Next() {
		secret, err := scanSecret(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan secret: %w", err)
		}
		secrets = append(secrets, secret)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating secrets: %w", err)
	}

	return secrets, nil
}

// UpdateSecret locks the owner's secret, applies mutate to a copy and
// writes the result. If mutate fails the transaction rolls back and its
// error is returned unchanged.
func (r *Repository) UpdateSecret(ctx context.Context, ownerID, id string, mutate func(*model.Secret) error) (*model.Secret, error) {
	var updated *model.Secret

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + secretColumns + `
			FROM secrets
			WHERE id = $1 AND owner_id = $2
			FOR UPDATE
		`

		current, err := scanSecret(tx.QueryRow(ctx, query, id, ownerID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSecretNotFound
			}
			return fmt.Errorf("failed to lock secret: %w", err)
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE secrets
			SET title = $3, login_name = $4, ciphertext = $5, url = $6, updated_at = $7
			WHERE id = $1 AND owner_id = $2
		`,
			current.ID,
			current.OwnerID,
			next.Title,
			next.LoginName,
			next.Ciphertext,
			next.URL,
			next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update secret: %w", err)
		}

		next.ID = current.ID
		next.OwnerID = current.OwnerID
		next.CreatedAt = current.CreatedAt
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteSecret hard-deletes an owner's secret.
func (r *Repository) DeleteSecret(ctx context.Context, ownerID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM secrets WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSecretNotFound
	}

	return nil
}

// SampleCiphertexts returns up to limit stored ciphertexts across all owners,
// newest first. Used to check that the configured key still opens them.
func (r *Repository) SampleCiphertexts(ctx context.Context, limit int) ([]CiphertextRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ciphertext
		FROM secrets
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample ciphertexts: %w", err)
	}
	defer rows.Close()

	refs := make([]CiphertextRef, 0, limit)
	for rows.Next() {
		var ref CiphertextRef
		if err := rows.Scan(&ref.ID, &ref.Ciphertext); err != nil {
			return nil, fmt.Errorf("failed to scan ciphertext: %w", err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ciphertexts: %w", err)
	}

	return refs, nil
}

// CiphertextRef identifies one stored ciphertext.
type CiphertextRef struct {
	ID         string
	Ciphertext string
}

// scanSecret scans a single row into a Secret model.
func scanSecret(row pgx.Row) (*model.Secret, error) {
	var secret model.Secret
	err := row.Scan(
		&secret.ID,
		&secret.OwnerID,
		&secret.Title,
		&secret.LoginName,
		&secret.Ciphertext,
		&secret.URL,
		&secret.CreatedAt,
		&secret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	secret.CreatedAt = secret.CreatedAt.UTC()
	secret.UpdatedAt = secret.UpdatedAt.UTC()
	return &secret, nil
}
