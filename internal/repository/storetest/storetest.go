// Package storetest is a behavioural suite shared by every credential store
// backend. Each backend's tests call Run with a constructor for a clean store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/testutil"
)

// Store is the full method set a backend must provide.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateSecret(ctx context.Context, secret *model.Secret) error
	GetSecret(ctx context.Context, ownerID, id string) (*model.Secret, error)
	ListSecrets(ctx context.Context, ownerID string, filter repository.SecretFilter) ([]*model.Secret, error)
	UpdateSecret(ctx context.Context, ownerID, id string, mutate func(*model.Secret) error) (*model.Secret, error)
	DeleteSecret(ctx context.Context, ownerID, id string) error
	SampleCiphertexts(ctx context.Context, limit int) ([]repository.CiphertextRef, error)
}

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("SecretOwnership", func(t *testing.T) { testSecretOwnership(t, newStore(t)) })
	t.Run("ListOrderingAndSearch", func(t *testing.T) { testListOrderingAndSearch(t, newStore(t)) })
	t.Run("UpdateAppliesMutation", func(t *testing.T) { testUpdateAppliesMutation(t, newStore(t)) })
	t.Run("UpdateAbortLeavesRecord", func(t *testing.T) { testUpdateAbortLeavesRecord(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("DeleteUserCascades", func(t *testing.T) { testDeleteUserCascades(t, newStore(t)) })
	t.Run("SampleCiphertexts", func(t *testing.T) { testSampleCiphertexts(t, newStore(t)) })
}

func mustUser(t *testing.T, store Store) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t)
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func mustSecret(t *testing.T, store Store, ownerID, title string, createdAt time.Time) *model.Secret {
	t.Helper()
	secret := testutil.NewTestSecret(t, ownerID, title)
	secret.CreatedAt = createdAt
	secret.UpdatedAt = createdAt
	require.NoError(t, store.CreateSecret(context.Background(), secret))
	return secret
}

func testUserLifecycle(t *testing.T, store Store) {
	ctx := context.Background()
	user := mustUser(t, store)

	byID, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
	assert.Equal(t, user.PasswordHash, byID.PasswordHash)
	assert.True(t, user.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := store.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = store.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func testDuplicateEmail(t *testing.T, store Store) {
	ctx := context.Background()
	user := mustUser(t, store)

	dup := testutil.NewTestUser(t)
	dup.Email = user.Email
	assert.ErrorIs(t, store.CreateUser(ctx, dup), repository.ErrEmailExists)

	_, err := store.GetUserByID(ctx, dup.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound, "rejected user must not be partially stored")
}

func testSecretOwnership(t *testing.T, store Store) {
	ctx := context.Background()
	alice := mustUser(t, store)
	bob := mustUser(t, store)

	secret := mustSecret(t, store, alice.ID, "mail", time.Now().UTC().Truncate(time.Microsecond))

	got, err := store.GetSecret(ctx, alice.ID, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, secret.Title, got.Title)
	assert.Equal(t, secret.Ciphertext, got.Ciphertext)
	assert.Nil(t, got.URL)

	_, err = store.GetSecret(ctx, bob.ID, secret.ID)
	assert.ErrorIs(t, err, repository.ErrSecretNotFound)

	_, err = store.UpdateSecret(ctx, bob.ID, secret.ID, func(s *model.Secret) error {
		s.Title = "stolen"
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrSecretNotFound)

	assert.ErrorIs(t, store.DeleteSecret(ctx, bob.ID, secret.ID), repository.ErrSecretNotFound)

	bobs, err := store.ListSecrets(ctx, bob.ID, repository.SecretFilter{Limit: repository.MaxListLimit})
	require.NoError(t, err)
	assert.Empty(t, bobs)

	require.NoError(t, store.DeleteSecret(ctx, alice.ID, secret.ID))
	_, err = store.GetSecret(ctx, alice.ID, secret.ID)
	assert.ErrorIs(t, err, repository.ErrSecretNotFound)
	assert.ErrorIs(t, store.DeleteSecret(ctx, alice.ID, secret.ID), repository.ErrSecretNotFound)
}

func testListOrderingAndSearch(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	other := mustUser(t, store)

	base := time.Now().UTC().Truncate(time.Second)
	titles := []string{"GitHub", "Gmail", "Bank", "gitlab_ci", "100% Pure"}
	for i, title := range titles {
		mustSecret(t, store, owner.ID, title, base.Add(time.Duration(i)*time.Second))
	}
	mustSecret(t, store, other.ID, "GitHub", base.Add(time.Hour))

	all, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit})
	require.NoError(t, err)
	require.Len(t, all, len(titles))
	for i := range all {
		assert.Equal(t, titles[len(titles)-1-i], all[i].Title, "newest first")
		assert.Equal(t, owner.ID, all[i].OwnerID)
	}

	page, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "gitlab_ci", page[0].Title)
	assert.Equal(t, "Bank", page[1].Title)

	git, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit, Search: "GIT"})
	require.NoError(t, err)
	require.Len(t, git, 2)
	assert.Equal(t, "gitlab_ci", git[0].Title)
	assert.Equal(t, "GitHub", git[1].Title)

	byLogin, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit, Search: "bank-LOGIN"})
	require.NoError(t, err)
	require.Len(t, byLogin, 1)
	assert.Equal(t, "Bank", byLogin[0].Title)

	percent, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit, Search: "%"})
	require.NoError(t, err)
	require.Len(t, percent, 1, "LIKE metacharacters must match literally")
	assert.Equal(t, "100% Pure", percent[0].Title)

	underscore, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit, Search: "t_u"})
	require.NoError(t, err)
	assert.Empty(t, underscore)

	none, err := store.ListSecrets(ctx, owner.ID, repository.SecretFilter{Limit: repository.MaxListLimit, Search: "nothing-matches"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	// Equal created_at: the later (higher) ID comes first on every backend.
	tied := mustUser(t, store)
	at := base.Add(2 * time.Hour)
	for _, id := range []string{"01JTIE0000000000000000000A", "01JTIE0000000000000000000B"} {
		secret := testutil.NewTestSecret(t, tied.ID, id)
		secret.ID = id
		secret.CreatedAt = at
		secret.UpdatedAt = at
		require.NoError(t, store.CreateSecret(ctx, secret))
	}
	ties, err := store.ListSecrets(ctx, tied.ID, repository.SecretFilter{Limit: repository.MaxListLimit})
	require.NoError(t, err)
	require.Len(t, ties, 2)
	assert.Equal(t, "01JTIE0000000000000000000B", ties[0].ID)
	assert.Equal(t, "01JTIE0000000000000000000A", ties[1].ID)
}

func testUpdateAppliesMutation(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	secret := mustSecret(t, store, owner.ID, "before", created)

	url := "https://example.com"
	updatedAt := time.Now().UTC().Truncate(time.Microsecond)
	got, err := store.UpdateSecret(ctx, owner.ID, secret.ID, func(s *model.Secret) error {
		s.Title = "after"
		s.URL = &url
		s.Ciphertext = "v1.rotated"
		s.UpdatedAt = updatedAt
		s.OwnerID = "someone-else"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, owner.ID, got.OwnerID, "owner is immutable")
	assert.True(t, got.CreatedAt.Equal(created))

	stored, err := store.GetSecret(ctx, owner.ID, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", stored.Title)
	assert.Equal(t, secret.LoginName, stored.LoginName)
	assert.Equal(t, "v1.rotated", stored.Ciphertext)
	require.NotNil(t, stored.URL)
	assert.Equal(t, url, *stored.URL)
	assert.True(t, stored.UpdatedAt.Equal(updatedAt))
	assert.True(t, stored.CreatedAt.Equal(created))

	got, err = store.UpdateSecret(ctx, owner.ID, secret.ID, func(s *model.Secret) error {
		s.URL = nil
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, got.URL)

	_, err = store.UpdateSecret(ctx, owner.ID, "missing", func(*model.Secret) error { return nil })
	assert.ErrorIs(t, err, repository.ErrSecretNotFound)
}

var errAbort = errors.New("abort")

func testUpdateAbortLeavesRecord(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	secret := mustSecret(t, store, owner.ID, "untouched", time.Now().UTC().Truncate(time.Microsecond))

	_, err := store.UpdateSecret(ctx, owner.ID, secret.ID, func(s *model.Secret) error {
		s.Title = "half-written"
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	stored, err := store.GetSecret(ctx, owner.ID, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "untouched", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(secret.UpdatedAt))
}

func testConcurrentUpdates(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	secret := mustSecret(t, store, owner.ID, "counter-0", time.Now().UTC().Truncate(time.Microsecond))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateSecret(ctx, owner.ID, secret.ID, func(s *model.Secret) error {
				var n int
				if _, err := fmt.Sscanf(s.Title, "counter-%d", &n); err != nil {
					return err
				}
				s.Title = fmt.Sprintf("counter-%d", n+1)
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := store.GetSecret(ctx, owner.ID, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("counter-%d", workers), stored.Title, "no update may be lost")
}

func testDeleteUserCascades(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	secret := mustSecret(t, store, owner.ID, "doomed", time.Now().UTC())

	require.NoError(t, store.DeleteUser(ctx, owner.ID))

	_, err := store.GetUserByID(ctx, owner.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = store.GetSecret(ctx, owner.ID, secret.ID)
	assert.ErrorIs(t, err, repository.ErrSecretNotFound)

	assert.ErrorIs(t, store.DeleteUser(ctx, owner.ID), repository.ErrUserNotFound)
}

func testSampleCiphertexts(t *testing.T, store Store) {
	ctx := context.Background()
	owner := mustUser(t, store)
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		mustSecret(t, store, owner.ID, fmt.Sprintf("s%d", i), base.Add(time.Duration(i)*time.Second))
	}

	refs, err := store.SampleCiphertexts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.NotEmpty(t, ref.ID)
		assert.Equal(t, "v1.placeholder", ref.Ciphertext)
	}
}
