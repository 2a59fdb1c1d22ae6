package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashFormat(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("Hash should be bcrypt modular format, got: %s", hash)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost failed: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("Expected cost %d, got %d", bcrypt.MinCost, cost)
	}
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	if first == second {
		t.Error("Same password should produce different hashes")
	}
	if !h.Verify("same-password", first) || !h.Verify("same-password", second) {
		t.Error("Both hashes should verify")
	}
}

func TestPasswordHasher_Verify(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	tests := []struct {
		name      string
		plaintext string
		hash      string
		want      bool
	}{
		{"correct password", "s3cret", hash, true},
		{"wrong password", "S3cret", hash, false},
		{"empty password", "", hash, false},
		{"malformed hash", "s3cret", "not-a-bcrypt-hash", false},
		{"empty hash", "s3cret", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := h.Verify(tt.plaintext, tt.hash); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordHasher_RejectsLongPasswords(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Errorf("72-byte password should hash, got: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1)); err != ErrPasswordTooLong {
		t.Errorf("Expected ErrPasswordTooLong, got: %v", err)
	}
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultBcryptCost},
		{1, bcrypt.MinCost},
		{bcrypt.MinCost, bcrypt.MinCost},
		{10, 10},
		{99, bcrypt.MaxCost},
	}

	for _, tt := range tests {
		if got := NewPasswordHasher(tt.in).Cost(); got != tt.want {
			t.Errorf("NewPasswordHasher(%d).Cost() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPasswordHasher_DummyVerify(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	h.DummyVerify("anything")
	h.DummyVerify("anything else")

	if len(h.dummy) == 0 {
		t.Error("DummyVerify should lazily build a comparison hash")
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("user@example.com")
	b := QuickHash("user@example.com")
	c := QuickHash("other@example.com")

	if a != b {
		t.Error("QuickHash should be deterministic")
	}
	if a == c {
		t.Error("Different inputs should produce different hashes")
	}
	if len(a) != 32 {
		t.Errorf("QuickHash should be 32 hex chars, got %d", len(a))
	}
}
