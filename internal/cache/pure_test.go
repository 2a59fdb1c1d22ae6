package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/lockbox/lockbox/internal/model"
)

func TestEmailKey_HidesAddress(t *testing.T) {
	t.Parallel()

	key := emailKey("alice@example.com")

	if !strings.HasPrefix(key, emailKeyPrefix) {
		t.Errorf("key should start with %s, got %s", emailKeyPrefix, key)
	}
	if strings.Contains(key, "alice") || strings.Contains(key, "example.com") {
		t.Errorf("key should not contain the raw address: %s", key)
	}
	if key != emailKey("alice@example.com") {
		t.Error("email key should be deterministic")
	}
	if key == emailKey("Alice@example.com") {
		t.Error("email keys are case-sensitive, like stored emails")
	}
}

func TestKeys_Layout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"user", userKey("u1"), "lockbox:user:u1"},
		{"owned", ownedKey("u1"), "lockbox:user:u1:secrets"},
		{"secret", secretKey("01HX"), "lockbox:secret:01HX"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got != tt.want {
				t.Errorf("got %s, want %s", tt.got, tt.want)
			}
		})
	}

	if id := secretIDFromKey(secretKey("01HX")); id != "01HX" {
		t.Errorf("secretIDFromKey = %s, want 01HX", id)
	}
}

func TestCreatedScore_MicrosecondOrdering(t *testing.T) {
	t.Parallel()

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &model.Secret{CreatedAt: base}
	b := &model.Secret{CreatedAt: base.Add(time.Microsecond)}

	if createdScore(b) <= createdScore(a) {
		t.Error("one microsecond apart must still order correctly as a float score")
	}
}

func TestSecretFields_CoverCachedSecret(t *testing.T) {
	t.Parallel()

	fields := secretFields(&model.CachedSecret{})
	for _, name := range []string{"id", "owner_id", "title", "login_name", "ciphertext", "url", "has_url", "created_at", "updated_at"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing field %s", name)
		}
	}
}
