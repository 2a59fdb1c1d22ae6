package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Key sizes produced by the key generators.
const (
	EncryptionKeyLen = 32 // AES-256
	SigningKeyLen    = 48 // HS256 secret, above the 32-byte minimum
)

// GeneratedKeys holds a fresh ENCRYPTION_KEY / JWT_SECRET pair, base64 encoded.
type GeneratedKeys struct {
	EncryptionKey string
	SigningKey    string
}

// GenerateKey returns n random bytes encoded as standard base64.
func GenerateKey(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// GenerateKeys creates a new encryption key and token signing secret.
// The output is shown once and never stored by lockbox itself.
func GenerateKeys() (*GeneratedKeys, error) {
	enc, err := GenerateKey(EncryptionKeyLen)
	if err != nil {
		return nil, err
	}

	sig, err := GenerateKey(SigningKeyLen)
	if err != nil {
		return nil, err
	}

	return &GeneratedKeys{
		EncryptionKey: enc,
		SigningKey:    sig,
	}, nil
}
