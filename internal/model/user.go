// Package model defines domain entities for the application.
package model

import (
	"strconv"
	"time"
)

// User is an account holder. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CachedUser represents user data stored in a Redis hash.
// Uses string types for Redis hash compatibility.
type CachedUser struct {
	ID           string `redis:"id"`
	Email        string `redis:"email"`
	PasswordHash string `redis:"password_hash"`
	CreatedAt    string `redis:"created_at"` // Unix nanoseconds
}

// ToCachedUser converts User to its Redis hash form.
func (u *User) ToCachedUser() *CachedUser {
	return &CachedUser{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatUnixNano(u.CreatedAt),
	}
}

// ToUser converts CachedUser back to the domain model.
func (c *CachedUser) ToUser() *User {
	return &User{
		ID:           c.ID,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    parseUnixNano(c.CreatedAt),
	}
}

func formatUnixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseUnixNano(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}
