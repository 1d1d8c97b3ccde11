package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuth(t *testing.T, password string) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(testSecret, string(hash), time.Hour)
}

func TestLogin_IssuesValidToken(t *testing.T) {
	a := newTestAuth(t, "correct horse")

	token, expiresAt, err := a.Login("correct horse")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	subject, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, subject)
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newTestAuth(t, "correct horse")
	_, _, err := a.Login("battery staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Disabled(t *testing.T) {
	a := NewAuthService(testSecret, "", time.Hour)
	assert.False(t, a.Enabled())
	_, _, err := a.Login("anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
	_, err = a.ValidateToken("x.y.z")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestValidateToken_Expired(t *testing.T) {
	a := newTestAuth(t, "pw")
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }
	token, _, err := a.GenerateToken(AdminSubject)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = a.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a := newTestAuth(t, "pw")
	token, _, err := a.GenerateToken(AdminSubject)
	require.NoError(t, err)

	other := newTestAuth(t, "pw")
	other.JWTSecret = "ffffffffffffffffffffffffffffffff"
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	a := NewAuthService(testSecret, "", time.Hour)
	hash, err := a.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
