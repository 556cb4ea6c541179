package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	claims := &TokenClaims{
		UserID:    userID,
		Email:     "rep@example.com",
		Role:      "rep",
		Name:      "Test Rep",
		SessionID: "11111111-1111-1111-1111-111111111111",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeToken(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signedToken(t, "user-1", exp)

	claims, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "rep@example.com", claims.Email)
	assert.Equal(t, "rep", claims.Role)
	assert.WithinDuration(t, exp, claims.ExpiresAt(), time.Second)
	assert.False(t, claims.Expired(time.Now()))
}

func TestDecodeTokenExpired(t *testing.T) {
	token := signedToken(t, "user-1", time.Now().Add(-time.Hour))

	claims, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Expired(time.Now()))
}

func TestDecodeTokenGarbage(t *testing.T) {
	_, err := DecodeToken("not.a.token")
	assert.Error(t, err)
}

func TestDecodeTokenMissingUserID(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = DecodeToken(token)
	assert.Error(t, err)
}
