package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbox/lockbox/internal/metrics"
	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/seal"
)

type vaultFixture struct {
	svc      *VaultService
	store    *repository.MemoryStore
	recorder *metrics.InMemoryRecorder
	clock    *fakeClock
	alice    *model.User
	bob      *model.User
}

func testKey(b byte) []byte {
	key := make([]byte, seal.KeySize)
	for i := range key {
		key[i] = b
	}
	return key
}

func newVaultFixture(t *testing.T) *vaultFixture {
	t.Helper()

	cipher, err := seal.New(testKey(7))
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore()
	recorder := metrics.NewInMemory()

	svc := NewVaultService(store, cipher, recorder, nil)
	svc.now = clock.Now

	f := &vaultFixture{svc: svc, store: store, recorder: recorder, clock: clock}
	f.alice = f.addUser(t, "alice@example.com")
	f.bob = f.addUser(t, "bob@example.com")
	return f
}

func (f *vaultFixture) addUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{
		ID:           "user-" + email,
		Email:        email,
		PasswordHash: "$2a$04$placeholder",
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.CreateUser(context.Background(), user))
	return user
}

func (f *vaultFixture) create(t *testing.T, user *model.User, title string) *model.RevealedSecret {
	t.Helper()
	secret, err := f.svc.Create(context.Background(), user, CreateSecretInput{
		Title:     title,
		LoginName: "login-" + title,
		Password:  "pw-" + title,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return secret
}

func strPtr(s string) *string {
	return &s
}

func TestVaultService_CreateAndGet(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.alice, CreateSecretInput{
		Title:     "GitHub",
		LoginName: "alice",
		Password:  "s3cret!",
		URL:       strPtr("https://github.com"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, f.alice.ID, created.OwnerID)
	assert.Equal(t, "s3cret!", created.Password)
	require.NotNil(t, created.URL)
	assert.Equal(t, "https://github.com", *created.URL)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	stored, err := f.store.GetSecret(ctx, f.alice.ID, created.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Ciphertext, "v1."))
	assert.NotContains(t, stored.Ciphertext, "s3cret!")

	got, err := f.svc.Get(ctx, f.alice, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3cret!", got.Password)
	assert.Equal(t, "GitHub", got.Title)

	ops := f.recorder.Snapshot().SecretOperations
	assert.Equal(t, uint64(1), ops[metrics.OpCreate])
	assert.Equal(t, uint64(1), ops[metrics.OpRead])
}

func TestVaultService_CreateEmptyURLIsAbsent(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)

	created, err := f.svc.Create(context.Background(), f.alice, CreateSecretInput{
		Title:     "Bank",
		LoginName: "alice",
		Password:  "pw",
		URL:       strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, created.URL)
}

func TestVaultService_CreateValidation(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)

	valid := CreateSecretInput{Title: "t", LoginName: "l", Password: "p"}

	tests := []struct {
		name   string
		mutate func(*CreateSecretInput)
		field  string
	}{
		{"empty title", func(in *CreateSecretInput) { in.Title = "" }, "title"},
		{"blank title", func(in *CreateSecretInput) { in.Title = "   " }, "title"},
		{"long title", func(in *CreateSecretInput) { in.Title = strings.Repeat("t", 256) }, "title"},
		{"empty login name", func(in *CreateSecretInput) { in.LoginName = "" }, "login_name"},
		{"empty password", func(in *CreateSecretInput) { in.Password = "" }, "password"},
		{"long password", func(in *CreateSecretInput) { in.Password = strings.Repeat("p", 4097) }, "password"},
		{"long url", func(in *CreateSecretInput) { in.URL = strPtr(strings.Repeat("u", 2049)) }, "url"},
		{"url with newline", func(in *CreateSecretInput) { in.URL = strPtr("https://a\nb") }, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), f.alice, in)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	out, err := f.svc.List(context.Background(), f.alice, ListSecretsInput{Limit: DefaultListLimit})
	require.NoError(t, err)
	assert.Empty(t, out.Secrets)
}

func TestVaultService_ForeignSecretIsNotFound(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	secret := f.create(t, f.alice, "Mail")

	_, err := f.svc.Get(ctx, f.bob, secret.ID)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, err = f.svc.Update(ctx, f.bob, secret.ID, UpdateSecretInput{Title: strPtr("pwned")})
	assert.ErrorIs(t, err, ErrSecretNotFound)

	err = f.svc.Delete(ctx, f.bob, secret.ID)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	_, missing := f.svc.Get(ctx, f.bob, "does-not-exist")
	_, foreign := f.svc.Get(ctx, f.bob, secret.ID)
	assert.Equal(t, missing, foreign)

	got, err := f.svc.Get(ctx, f.alice, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mail", got.Title)

	bobList, err := f.svc.List(ctx, f.bob, ListSecretsInput{Limit: DefaultListLimit})
	require.NoError(t, err)
	assert.Empty(t, bobList.Secrets)
}

func TestVaultService_Update(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	secret := f.create(t, f.alice, "Old")
	f.clock.Advance(time.Minute)

	updated, err := f.svc.Update(ctx, f.alice, secret.ID, UpdateSecretInput{
		Title:    strPtr("New"),
		Password: strPtr("rotated"),
		URL:      strPtr("https://new.example.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, secret.ID, updated.ID)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "login-Old", updated.LoginName)
	assert.Equal(t, "rotated", updated.Password)
	require.NotNil(t, updated.URL)
	assert.Equal(t, "https://new.example.com", *updated.URL)
	assert.Equal(t, secret.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(secret.UpdatedAt))

	got, err := f.svc.Get(ctx, f.alice, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Password)

	// Metadata-only update keeps the password.
	renamed, err := f.svc.Update(ctx, f.alice, secret.ID, UpdateSecretInput{LoginName: strPtr("alice2")})
	require.NoError(t, err)
	assert.Equal(t, "rotated", renamed.Password)
	assert.Equal(t, "alice2", renamed.LoginName)
}

func TestVaultService_UpdateClearsURL(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.alice, CreateSecretInput{
		Title: "Site", LoginName: "a", Password: "p", URL: strPtr("https://site.example"),
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.alice, created.ID, UpdateSecretInput{URL: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.URL)
}

func TestVaultService_UpdateNoFields(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	secret := f.create(t, f.alice, "Keep")
	before, err := f.store.GetSecret(ctx, f.alice.ID, secret.ID)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.alice, secret.ID, UpdateSecretInput{})
	assert.ErrorIs(t, err, ErrNoFieldsProvided)

	after, err := f.store.GetSecret(ctx, f.alice.ID, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Ciphertext, after.Ciphertext)

	// Ownership is checked before field presence.
	_, err = f.svc.Update(ctx, f.bob, secret.ID, UpdateSecretInput{})
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestVaultService_UpdateValidationLeavesRecord(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	secret := f.create(t, f.alice, "Stable")

	_, err := f.svc.Update(ctx, f.alice, secret.ID, UpdateSecretInput{
		Title:    strPtr("Changed"),
		Password: strPtr(""),
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	got, err := f.svc.Get(ctx, f.alice, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stable", got.Title)
	assert.Equal(t, "pw-Stable", got.Password)
}

func TestVaultService_Delete(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	secret := f.create(t, f.alice, "Temp")

	require.NoError(t, f.svc.Delete(ctx, f.alice, secret.ID))

	_, err := f.svc.Get(ctx, f.alice, secret.ID)
	assert.ErrorIs(t, err, ErrSecretNotFound)

	err = f.svc.Delete(ctx, f.alice, secret.ID)
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestVaultService_List(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.create(t, f.alice, fmt.Sprintf("entry-%d", i))
	}
	f.create(t, f.alice, "GitHub")
	f.create(t, f.bob, "GitHub")

	all, err := f.svc.List(ctx, f.alice, ListSecretsInput{Limit: DefaultListLimit})
	require.NoError(t, err)
	require.Len(t, all.Secrets, 6)
	assert.Equal(t, "GitHub", all.Secrets[0].Title)
	assert.Equal(t, "entry-0", all.Secrets[5].Title)
	assert.Equal(t, repository.DefaultListLimit, all.Limit)
	for _, s := range all.Secrets {
		assert.Equal(t, f.alice.ID, s.OwnerID)
	}

	page, err := f.svc.List(ctx, f.alice, ListSecretsInput{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Secrets, 2)
	assert.Equal(t, "entry-4", page.Secrets[0].Title)
	assert.Equal(t, "entry-3", page.Secrets[1].Title)

	search, err := f.svc.List(ctx, f.alice, ListSecretsInput{Limit: DefaultListLimit, Search: "github"})
	require.NoError(t, err)
	require.Len(t, search.Secrets, 1)
	assert.Equal(t, "GitHub", search.Secrets[0].Title)

	clamped, err := f.svc.List(ctx, f.alice, ListSecretsInput{Offset: -3, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 0, clamped.Offset)
	assert.Equal(t, repository.MaxListLimit, clamped.Limit)

	for _, limit := range []int{0, -5} {
		low, err := f.svc.List(ctx, f.alice, ListSecretsInput{Limit: limit})
		require.NoError(t, err)
		assert.Equal(t, 1, low.Limit, "limit %d", limit)
		require.Len(t, low.Secrets, 1, "limit %d", limit)
		assert.Equal(t, "GitHub", low.Secrets[0].Title)
	}
}

func TestVaultService_ListCapsPageSize(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	const total = repository.MaxListLimit + 5
	for i := 0; i < total; i++ {
		f.create(t, f.alice, fmt.Sprintf("entry-%03d", i))
	}

	first, err := f.svc.List(ctx, f.alice, ListSecretsInput{Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, repository.MaxListLimit, first.Limit)
	require.Len(t, first.Secrets, repository.MaxListLimit)
	assert.Equal(t, fmt.Sprintf("entry-%03d", total-1), first.Secrets[0].Title)

	rest, err := f.svc.List(ctx, f.alice, ListSecretsInput{Offset: repository.MaxListLimit, Limit: 500})
	require.NoError(t, err)
	require.Len(t, rest.Secrets, 5)
	assert.Equal(t, "entry-000", rest.Secrets[4].Title)
}

func TestVaultService_IntegrityFailure(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	foreign, err := seal.New(testKey(9))
	require.NoError(t, err)
	ciphertext, err := foreign.Encrypt("sealed elsewhere", "01JFOREIGNKEY0000000000000")
	require.NoError(t, err)

	now := f.clock.Now()
	require.NoError(t, f.store.CreateSecret(ctx, &model.Secret{
		ID:         "01JFOREIGNKEY0000000000000",
		OwnerID:    f.alice.ID,
		Title:      "Rotated key",
		LoginName:  "alice",
		Ciphertext: ciphertext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}))

	_, err = f.svc.Get(ctx, f.alice, "01JFOREIGNKEY0000000000000")
	assert.ErrorIs(t, err, ErrIntegrity)
	assert.Equal(t, uint64(1), f.recorder.Snapshot().DecryptFailures)

	// Listing does not decrypt and still works.
	out, err := f.svc.List(ctx, f.alice, ListSecretsInput{Limit: DefaultListLimit})
	require.NoError(t, err)
	assert.Len(t, out.Secrets, 1)

	// Replacing the password repairs the record.
	repaired, err := f.svc.Update(ctx, f.alice, "01JFOREIGNKEY0000000000000", UpdateSecretInput{Password: strPtr("fresh")})
	require.NoError(t, err)
	assert.Equal(t, "fresh", repaired.Password)
}

func TestVaultService_UpdateKeepsRecordWhenStoredValueIsUnreadable(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	const id = "01JUNREADABLE0000000000000"
	foreign, err := seal.New(testKey(9))
	require.NoError(t, err)
	ciphertext, err := foreign.Encrypt("sealed elsewhere", id)
	require.NoError(t, err)

	created := f.clock.Now()
	require.NoError(t, f.store.CreateSecret(ctx, &model.Secret{
		ID:         id,
		OwnerID:    f.alice.ID,
		Title:      "old",
		LoginName:  "alice",
		Ciphertext: ciphertext,
		CreatedAt:  created,
		UpdatedAt:  created,
	}))
	f.clock.Advance(time.Minute)

	_, err = f.svc.Update(ctx, f.alice, id, UpdateSecretInput{Title: strPtr("new")})
	require.ErrorIs(t, err, ErrIntegrity)

	stored, err := f.store.GetSecret(ctx, f.alice.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "old", stored.Title)
	assert.True(t, stored.UpdatedAt.Equal(created))
	assert.Equal(t, ciphertext, stored.Ciphertext)
	assert.Equal(t, uint64(0), f.recorder.Snapshot().SecretOperations[metrics.OpUpdate])
}

func TestVaultService_CiphertextMovedToAnotherRecord(t *testing.T) {
	t.Parallel()
	f := newVaultFixture(t)
	ctx := context.Background()

	source := f.create(t, f.alice, "Source")
	target := f.create(t, f.alice, "Target")

	stolen, err := f.store.GetSecret(ctx, f.alice.ID, source.ID)
	require.NoError(t, err)
	_, err = f.store.UpdateSecret(ctx, f.alice.ID, target.ID, func(s *model.Secret) error {
		s.Ciphertext = stolen.Ciphertext
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.alice, target.ID)
	assert.ErrorIs(t, err, ErrIntegrity)

	got, err := f.svc.Get(ctx, f.alice, source.ID)
	require.NoError(t, err)
	assert.Equal(t, source.Password, got.Password)
}
