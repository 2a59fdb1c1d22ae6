package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockbox/lockbox/internal/model"
	"github.com/lockbox/lockbox/internal/repository"
	"github.com/lockbox/lockbox/internal/seal"
)

func init() {
	color.NoColor = true
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestKeygen_EnvFormat(t *testing.T) {
	out, err := runCmd(t, "keygen", "--env")
	require.NoError(t, err)

	values := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		k, v, ok := strings.Cut(line, "=")
		require.True(t, ok, "line %q", line)
		values[k] = v
	}

	key, err := seal.ParseKey(values["ENCRYPTION_KEY"])
	require.NoError(t, err)
	assert.Len(t, key, seal.KeySize)
	assert.GreaterOrEqual(t, len(values["JWT_SECRET"]), 32)
}

func TestKeygen_Human(t *testing.T) {
	out, err := runCmd(t, "keygen")
	require.NoError(t, err)
	assert.Contains(t, out, "ENCRYPTION_KEY")
	assert.Contains(t, out, "Store them securely")
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down", "status"} {
		_, err := runCmd(t, "migrate", sub, "--database-url", "")
		assert.ErrorIs(t, err, errNoDatabaseURL, sub)
	}
}

func TestVerifyKey_RejectsBadKey(t *testing.T) {
	_, err := runCmd(t, "verify-key", "--key", "too-short")
	assert.ErrorIs(t, err, seal.ErrInvalidKey)
}

func TestVerifyKey_Report(t *testing.T) {
	ctx := context.Background()

	current, err := seal.New(bytes.Repeat([]byte{1}, seal.KeySize))
	require.NoError(t, err)
	previous, err := seal.New(bytes.Repeat([]byte{2}, seal.KeySize))
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	owner := &model.User{ID: "u1", Email: "u1@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.CreateUser(ctx, owner))

	add := func(id string, c *seal.Cipher, createdAt time.Time) {
		ct, err := c.Encrypt("value-"+id, id)
		require.NoError(t, err)
		require.NoError(t, store.CreateSecret(ctx, &model.Secret{
			ID: id, OwnerID: owner.ID, Title: id, LoginName: "l",
			Ciphertext: ct, CreatedAt: createdAt, UpdatedAt: createdAt,
		}))
	}

	t.Run("empty store", func(t *testing.T) {
		var out bytes.Buffer
		err := verifyKey(ctx, repository.NewMemoryStore(), current, 10, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "no stored secrets")
	})

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	add("s1", current, base)
	add("s2", current, base.Add(time.Second))

	t.Run("all decrypt", func(t *testing.T) {
		var out bytes.Buffer
		err := verifyKey(ctx, store, current, 10, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "2 of 2 sampled secrets decrypt")
	})

	add("s3", previous, base.Add(2*time.Second))

	t.Run("mismatch reported", func(t *testing.T) {
		var out bytes.Buffer
		err := verifyKey(ctx, store, current, 10, &out)
		require.ErrorIs(t, err, errKeyMismatch)
		assert.Contains(t, out.String(), "1 of 3 sampled secrets failed")
		assert.Contains(t, out.String(), "s3")
		assert.NotContains(t, out.String(), "value-")
	})

	t.Run("sample limit", func(t *testing.T) {
		var out bytes.Buffer
		err := verifyKey(ctx, store, current, 2, &out)
		require.ErrorIs(t, err, errKeyMismatch)
		assert.Contains(t, out.String(), "1 of 2 sampled secrets failed")
	})
}
