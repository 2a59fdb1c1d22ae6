package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockbox/lockbox/internal/metrics"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
)

// errSeal marks an encryption failure raised inside an update mutation.
var errSeal = errors.New("seal secret")

// VaultService handles secret business logic. Every operation is bound to
// the authenticated user passed in; no method accepts an owner ID.
type VaultService struct {
	secrets SecretStore
	sealer  Sealer
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewVaultService creates a new VaultService.
func NewVaultService(secrets SecretStore, sealer Sealer, recorder metrics.Recorder, logger *slog.Logger) *VaultService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VaultService{
		secrets: secrets,
		sealer:  sealer,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateSecretInput defines input for creating a secret.
type CreateSecretInput struct {
	Title     string
	LoginName string
	Password  string
	URL       *string
}

// Create encrypts and stores a new secret owned by user.
func (s *VaultService) Create(ctx context.Context, user *model.User, input CreateSecretInput) (*model.RevealedSecret, error) {
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateLoginName(input.LoginName); err != nil {
		return nil, err
	}
	if err := validateSecretValue(input.Password); err != nil {
		return nil, err
	}
	if input.URL != nil {
		if err := validateURL(*input.URL); err != nil {
			return nil, err
		}
	}

	now := s.timestamp()
	id := newSecretID(now)

	ciphertext, err := s.sealer.Encrypt(input.Password, id)
	if err != nil {
		return nil, s.storageError(ctx, "encrypt secret", err)
	}

	secret := &model.Secret{
		ID:         id,
		OwnerID:    user.ID,
		Title:      input.Title,
		LoginName:  input.LoginName,
		Ciphertext: ciphertext,
		URL:        normalizeURL(input.URL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.secrets.CreateSecret(ctx, secret); err != nil {
		return nil, s.storageError(ctx, "create secret", err)
	}

	s.metrics.IncSecretOperation(metrics.OpCreate)

	return secret.Reveal(input.Password), nil
}

// DefaultListLimit is the page size callers use when the client supplies none.
const DefaultListLimit = repository.DefaultListLimit

// ListSecretsInput defines paging and search for List. Limit is clamped
// to [1, 100]; callers substitute DefaultListLimit for an absent limit.
type ListSecretsInput struct {
	Offset int
	Limit  int
	Search string
}

// ListSecretsOutput is a page of metadata-only secrets.
type ListSecretsOutput struct {
	Secrets []*model.Secret
	Offset  int
	Limit   int
}

// List returns the user's secrets without passwords, newest first.
func (s *VaultService) List(ctx context.Context, user *model.User, input ListSecretsInput) (*ListSecretsOutput, error) {
	filter := repository.SecretFilter{
		Offset: input.Offset,
		Limit:  input.Limit,
		Search: input.Search,
	}.Normalize()

	secrets, err := s.secrets.ListSecrets(ctx, user.ID, filter)
	if err != nil {
		return nil, s.storageError(ctx, "list secrets", err)
	}

	s.metrics.IncSecretOperation(metrics.OpList)

	return &ListSecretsOutput{
		Secrets: secrets,
		Offset:  filter.Offset,
		Limit:   filter.Limit,
	}, nil
}

// Get returns one of the user's secrets with its decrypted password.
func (s *VaultService) Get(ctx context.Context, user *model.User, id string) (*model.RevealedSecret, error) {
	secret, err := s.secrets.GetSecret(ctx, user.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSecretNotFound) {
			return nil, ErrSecretNotFound
		}
		return nil, s.storageError(ctx, "get secret", err)
	}

	password, err := s.open(ctx, secret)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSecretOperation(metrics.OpRead)

	return secret.Reveal(password), nil
}

// UpdateSecretInput defines a partial update. A nil field is left alone;
// a non-nil field was provided, even when it points at "".
type UpdateSecretInput struct {
	Title     *string
	LoginName *string
	Password  *string
	URL       *string
}

// IsEmpty reports whether no field was provided.
func (in UpdateSecretInput) IsEmpty() bool {
	return in.Title == nil && in.LoginName == nil && in.Password == nil && in.URL == nil
}

func (in UpdateSecretInput) validate() error {
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.LoginName != nil {
		if err := validateLoginName(*in.LoginName); err != nil {
			return err
		}
	}
	if in.Password != nil {
		if err := validateSecretValue(*in.Password); err != nil {
			return err
		}
	}
	if in.URL != nil {
		if err := validateURL(*in.URL); err != nil {
			return err
		}
	}
	return nil
}

// Update applies the provided fields to one of the user's secrets.
// Checks run in order: ownership (ErrSecretNotFound), then presence of
// at least one field (ErrNoFieldsProvided), then field validation, then,
// when the password is kept, that the stored value still decrypts
// (ErrIntegrity). A rejected update leaves the record and its updated_at
// untouched.
func (s *VaultService) Update(ctx context.Context, user *model.User, id string, input UpdateSecretInput) (*model.RevealedSecret, error) {
	var password string

	mutate := func(secret *model.Secret) error {
		if input.IsEmpty() {
			return ErrNoFieldsProvided
		}
		if err := input.validate(); err != nil {
			return err
		}

		if input.Password != nil {
			ciphertext, err := s.sealer.Encrypt(*input.Password, secret.ID)
			if err != nil {
				return fmt.Errorf("%w: %w", errSeal, err)
			}
			secret.Ciphertext = ciphertext
			password = *input.Password
		} else {
			current, err := s.open(ctx, secret)
			if err != nil {
				return err
			}
			password = current
		}

		if input.Title != nil {
			secret.Title = *input.Title
		}
		if input.LoginName != nil {
			secret.LoginName = *input.LoginName
		}
		if input.URL != nil {
			secret.URL = normalizeURL(input.URL)
		}

		secret.UpdatedAt = s.timestamp()
		return nil
	}

	updated, err := s.secrets.UpdateSecret(ctx, user.ID, id, mutate)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSecretNotFound):
			return nil, ErrSecretNotFound
		case errors.Is(err, ErrNoFieldsProvided), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrIntegrity):
			return nil, err
		default:
			return nil, s.storageError(ctx, "update secret", err)
		}
	}

	s.metrics.IncSecretOperation(metrics.OpUpdate)

	return updated.Reveal(password), nil
}

// Delete permanently removes one of the user's secrets.
func (s *VaultService) Delete(ctx context.Context, user *model.User, id string) error {
	if err := s.secrets.DeleteSecret(ctx, user.ID, id); err != nil {
		if errors.Is(err, repository.ErrSecretNotFound) {
			return ErrSecretNotFound
		}
		return s.storageError(ctx, "delete secret", err)
	}

	s.metrics.IncSecretOperation(metrics.OpDelete)
	return nil
}

// open decrypts a stored secret. A failure means the ciphertext no longer
// matches the configured key or was sealed for another record, and is
// reported as ErrIntegrity.
func (s *VaultService) open(ctx context.Context, secret *model.Secret) (string, error) {
	password, err := s.sealer.Decrypt(secret.Ciphertext, secret.ID)
	if err != nil {
		s.metrics.IncDecryptFailure()
		s.logger.ErrorContext(ctx, "secret failed to decrypt",
			slog.String("secret_id", secret.ID),
			slog.String("owner_id", secret.OwnerID),
		)
		return "", ErrIntegrity
	}
	return password, nil
}

func (s *VaultService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *VaultService) storageError(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "vault storage failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return ErrStorage
}

// normalizeURL maps an empty URL to absent.
func normalizeURL(url *string) *string {
	if url == nil || *url == "" {
		return nil
	}
	u := *url
	return &u
}
