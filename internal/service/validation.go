package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/lockbox/lockbox/internal/auth"
)

// Field limits.
const (
	maxEmailLength     = 254
	maxTitleLength     = 255
	maxLoginNameLength = 255
	maxSecretLength    = 4096
	maxURLLength       = 2048
)

// validateEmail accepts a bare RFC 5322 address, without display name.
func validateEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	if len(email) > maxEmailLength {
		return invalid("email", "is too long")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("email", "is not a valid address")
	}
	return nil
}

// validateAccountPassword enforces bcrypt's input limits.
func validateAccountPassword(password string) error {
	if password == "" {
		return invalid("password", "is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return invalid("password", "must be at most 72 bytes")
	}
	return nil
}

func validateText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(value) > max {
		return invalid(field, "is too long")
	}
	return nil
}

func validateTitle(title string) error {
	return validateText("title", title, maxTitleLength)
}

func validateLoginName(name string) error {
	return validateText("login_name", name, maxLoginNameLength)
}

func validateSecretValue(password string) error {
	if password == "" {
		return invalid("password", "must not be empty")
	}
	if len(password) > maxSecretLength {
		return invalid("password", "is too long")
	}
	return nil
}

func validateURL(url string) error {
	if utf8.RuneCountInString(url) > maxURLLength {
		return invalid("url", "is too long")
	}
	if strings.ContainsAny(url, "\r\n\x00") {
		return invalid("url", "contains control characters")
	}
	return nil
}
