package model

import "time"

// Secret is a stored credential record. The password exists only as
// Ciphertext; plaintext never reaches storage.
type Secret struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	LoginName  string    `json:"login_name"`
	Ciphertext string    `json:"-"`
	URL        *string   `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s *Secret) Clone() *Secret {
	c := *s
	if s.URL != nil {
		u := *s.URL
		c.URL = &u
	}
	return &c
}

// RevealedSecret is a Secret together with its decrypted password.
// It is built for responses only and never stored.
type RevealedSecret struct {
	Secret
	Password string `json:"password"`
}

// Reveal pairs the secret with its plaintext password.
func (s *Secret) Reveal(password string) *RevealedSecret {
	return &RevealedSecret{Secret: *s.Clone(), Password: password}
}

// CachedSecret represents secret data stored in a Redis hash.
// Uses string types for Redis hash compatibility.
type CachedSecret struct {
	ID         string `redis:"id"`
	OwnerID    string `redis:"owner_id"`
	Title      string `redis:"title"`
	LoginName  string `redis:"login_name"`
	Ciphertext string `redis:"ciphertext"`
	URL        string `redis:"url"`     // empty when absent
	HasURL     string `redis:"has_url"` // "1" or "0"
	CreatedAt  string `redis:"created_at"`
	UpdatedAt  string `redis:"updated_at"`
}

// ToCachedSecret converts Secret to its Redis hash form.
func (s *Secret) ToCachedSecret() *CachedSecret {
	cached := &CachedSecret{
		ID:         s.ID,
		OwnerID:    s.OwnerID,
		Title:      s.Title,
		LoginName:  s.LoginName,
		Ciphertext: s.Ciphertext,
		HasURL:     boolToString(s.URL != nil),
		CreatedAt:  formatUnixNano(s.CreatedAt),
		UpdatedAt:  formatUnixNano(s.UpdatedAt),
	}
	if s.URL != nil {
		cached.URL = *s.URL
	}
	return cached
}

// ToSecret converts CachedSecret back to the domain model.
func (c *CachedSecret) ToSecret() *Secret {
	secret := &Secret{
		ID:         c.ID,
		OwnerID:    c.OwnerID,
		Title:      c.Title,
		LoginName:  c.LoginName,
		Ciphertext: c.Ciphertext,
		CreatedAt:  parseUnixNano(c.CreatedAt),
		UpdatedAt:  parseUnixNano(c.UpdatedAt),
	}
	if c.HasURL == "1" {
		u := c.URL
		secret.URL = &u
	}
	return secret
}

// boolToString converts boolean to "1" or "0".
func boolToString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
