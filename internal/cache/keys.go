package cache

import (
	"strings"

	"github.com/lockbox/lockbox/internal/auth"
)

// Key layout:
//
//	lockbox:user:<id>            hash   model.CachedUser
//	lockbox:email:<quickhash>    string user id (SETNX guards uniqueness)
//	lockbox:user:<id>:secrets    zset   secret ids scored by created_at (µs)
//	lockbox:secret:<id>          hash   model.CachedSecret
const (
	keyPrefix       = "lockbox:"
	userKeyPrefix   = keyPrefix + "user:"
	emailKeyPrefix  = keyPrefix + "email:"
	secretKeyPrefix = keyPrefix + "secret:"
	ownedKeySuffix  = ":secrets"
)

func userKey(id string) string {
	return userKeyPrefix + id
}

// emailKey hashes the address so raw emails never appear in key names.
func emailKey(email string) string {
	return emailKeyPrefix + auth.QuickHash(email)
}

func ownedKey(userID string) string {
	return userKeyPrefix + userID + ownedKeySuffix
}

func secretKey(id string) string {
	return secretKeyPrefix + id
}

func secretIDFromKey(key string) string {
	return strings.TrimPrefix(key, secretKeyPrefix)
}
