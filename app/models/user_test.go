package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("Jo Smith", "jo@example.com", "secret123", "")
	require.NoError(t, err)

	assert.Equal(t, "Jo Smith", u.Name)
	assert.Equal(t, ROLE_STUDENT, u.Role, "empty role defaults to student")
	assert.Equal(t, STATUS_PENDING, u.Status)
	assert.NotEqual(t, "secret123", u.Password, "password must be hashed")
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		role     string
	}{
		{"short name", "Jo", "jo@example.com", "secret123", ROLE_STUDENT},
		{"bad email", "Jo Smith", "not-an-email", "secret123", ROLE_STUDENT},
		{"unknown role", "Jo Smith", "jo@example.com", "secret123", "superuser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateUser(tt.userName, tt.email, tt.password, tt.role)
			assert.Error(t, err)
		})
	}
}

func TestUserSetPassword(t *testing.T) {
	u, err := CreateUser("Jo Smith", "jo@example.com", "secret123", ROLE_RECRUITER)
	require.NoError(t, err)

	require.NoError(t, u.SetPassword("newsecret"))
	assert.True(t, u.CheckPassword("newsecret"))
	assert.False(t, u.CheckPassword("secret123"))
}

func TestUserIsApproved(t *testing.T) {
	assert.True(t, (&User{Status: STATUS_APPROVED}).IsApproved())
	assert.False(t, (&User{Status: STATUS_PENDING}).IsApproved())
	assert.False(t, (&User{Status: STATUS_ON_HOLD}).IsApproved())
}
