package core

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Authenticate returns the role of the single user matching username and
// password after normalization. Zero or several matches are both rejected
// with ErrInvalidCredentials.
func Authenticate(users []User, username, password string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(username))
	pass := strings.TrimSpace(password)
	if name == "" {
		return "", ErrEmptyUsername
	}
	if pass == "" {
		return "", ErrEmptyPassword
	}

	var matched []User
	for _, u := range users {
		u = NormalizeUser(u)
		if u.Username != name {
			continue
		}
		if passwordMatches(u.Password, pass) {
			matched = append(matched, u)
		}
	}
	if len(matched) != 1 {
		return "", ErrInvalidCredentials
	}
	return matched[0].Role, nil
}

// passwordMatches compares a stored password with the submitted one. Stored
// values that look like bcrypt hashes are verified as such; anything else is
// a plain-text comparison, as the users sheet is edited by hand.
func passwordMatches(stored, submitted string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted)) == nil
	}
	return stored == submitted
}

func isBcrypt(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// HashPassword returns a bcrypt hash suitable for the password column.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// HasUser reports whether a user with the normalized name exists.
func HasUser(users []User, username string) bool {
	name := strings.ToLower(strings.TrimSpace(username))
	for _, u := range users {
		if NormalizeUser(u).Username == name {
			return true
		}
	}
	return false
}
