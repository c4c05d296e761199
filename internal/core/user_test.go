package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	users := []User{
		{Username: "Admin", Password: "1234.0", Role: RoleAdmin},
		{Username: "veli", Password: "abc", Role: RoleUser},
		{Username: "hashed", Password: hash, Role: RoleUser},
		{Username: "twin", Password: "same", Role: RoleUser},
		{Username: "twin", Password: "same", Role: RoleAdmin},
	}

	tests := []struct {
		name     string
		user     string
		pass     string
		wantRole Role
		wantErr  error
	}{
		{"numeric password stored with .0", " admin ", "1234", RoleAdmin, nil},
		{"case insensitive username", "VELI", "abc", RoleUser, nil},
		{"wrong password", "veli", "abd", "", ErrInvalidCredentials},
		{"password is case sensitive", "veli", "ABC", "", ErrInvalidCredentials},
		{"unknown user", "nobody", "x", "", ErrInvalidCredentials},
		{"bcrypt hash", "hashed", "s3cret", RoleUser, nil},
		{"bcrypt mismatch", "hashed", "nope", "", ErrInvalidCredentials},
		{"duplicate matches rejected", "twin", "same", "", ErrInvalidCredentials},
		{"empty username", "  ", "x", "", ErrEmptyUsername},
		{"empty password", "veli", " ", "", ErrEmptyPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := Authenticate(users, tt.user, tt.pass)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, role)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, role)
		})
	}
}

func TestHasUser(t *testing.T) {
	users := []User{{Username: "admin"}}
	assert.True(t, HasUser(users, " ADMIN"))
	assert.False(t, HasUser(users, "veli"))
}
