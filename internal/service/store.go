package service

import (
	"context"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
)

// UserStore persists accounts. Implementations return
// repository.ErrUserNotFound and repository.ErrEmailExists.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// SecretStore persists secrets. Every call is scoped by owner, and a
// secret owned by someone else is reported as repository.ErrSecretNotFound.
type SecretStore interface {
	CreateSecret(ctx context.Context, secret *model.Secret) error
	GetSecret(ctx context.Context, ownerID, id string) (*model.Secret, error)
	ListSecrets(ctx context.Context, ownerID string, filter repository.SecretFilter) ([]*model.Secret, error)
	// UpdateSecret runs mutate on a copy of the current record inside the
	// store's atomic section and persists the copy only if mutate succeeds.
	UpdateSecret(ctx context.Context, ownerID, id string, mutate func(*model.Secret) error) (*model.Secret, error)
	DeleteSecret(ctx context.Context, ownerID, id string) error
}

// Sealer encrypts and decrypts secret values at rest. The binding is the
// secret ID; a token only opens under the ID it was sealed for.
type Sealer interface {
	Encrypt(plaintext, binding string) (string, error)
	Decrypt(token, binding string) (string, error)
}
