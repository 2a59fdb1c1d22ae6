// Package seal encrypts secret values at rest with AES-256-GCM.
//
// A sealed value is a self-describing string token:
//
//	v1.<base64url(nonce || ciphertext || tag)>
//
// The token carries its own nonce, and tampering is caught by the GCM tag.
// Callers pass a binding (the owning record's ID) that is authenticated as
// additional data, so a token only opens under the binding it was sealed with.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

const tokenPrefix = "v1."

var (
	// ErrInvalidKey is returned when the key is not KeySize bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")
	// ErrDecryption is returned for any token that cannot be opened under the key.
	ErrDecryption = errors.New("unable to decrypt value")
)

var encoding = base64.RawURLEncoding

// Cipher seals and opens secret values. It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// New creates a Cipher from a 32-byte key.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	return &Cipher{aead: aead, rand: rand.Reader}, nil
}

// ParseKey decodes a base64 key as configured in ENCRYPTION_KEY.
// Standard and URL-safe alphabets are accepted, with or without padding.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		key, err := enc.DecodeString(s)
		if err == nil {
			if len(key) != KeySize {
				return nil, ErrInvalidKey
			}
			return key, nil
		}
	}

	return nil, fmt.Errorf("%w: not valid base64", ErrInvalidKey)
}

// Encrypt seals plaintext under a fresh random nonce, bound to binding.
func (c *Cipher) Encrypt(plaintext, binding string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), additionalData(binding))
	return tokenPrefix + encoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt under the same key and binding.
// Any failure is reported as ErrDecryption without partial output.
func (c *Cipher) Decrypt(token, binding string) (string, error) {
	body, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok {
		return "", ErrDecryption
	}

	raw, err := encoding.DecodeString(body)
	if err != nil {
		return "", ErrDecryption
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+c.aead.Overhead() {
		return "", ErrDecryption
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], additionalData(binding))
	if err != nil {
		return "", ErrDecryption
	}

	return string(plaintext), nil
}

func additionalData(binding string) []byte {
	if binding == "" {
		return nil
	}
	return []byte(binding)
}
