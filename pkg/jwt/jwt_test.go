package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestNewService(t *testing.T) {
	secretKey := "test-secret-key"
	service := NewService(secretKey)

	assert.NotNil(t, service)
	assert.Equal(t, []byte(secretKey), service.secretKey)
}

func TestGenerateToken(t *testing.T) {
	service := NewService("test-secret-key")
	userID := "operator-123"
	role := "admin"

	token, err := service.GenerateToken(userID, role)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Greater(t, len(token), 0)
}

func TestValidateToken(t *testing.T) {
	service := NewService("test-secret-key")
	userID := "operator-123"
	role := "admin"

	// Generate token
	token, err := service.GenerateToken(userID, role)
	assert.NoError(t, err)

	// Validate token
	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, role, claims.Role)
}

func TestValidateToken_InvalidToken(t *testing.T) {
	service := NewService("test-secret-key")

	// Invalid token format
	_, err := service.ValidateToken("invalid-token")
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	service1 := NewService("secret-key-1")
	service2 := NewService("secret-key-2")

	token, err := service1.GenerateToken("operator-123", "admin")
	assert.NoError(t, err)

	// Token signed with the first secret must not validate with the second
	_, err = service2.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	service := NewService("test-secret-key")

	token, err := service.GenerateToken("operator-123", "admin")
	assert.NoError(t, err)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims.ExpiresAt)
	assert.True(t, time.Now().Before(claims.ExpiresAt.Time))

	// A token whose expiry is in the past must be rejected
	expired := Claims{
		UserID: "operator-123",
		Role:   "admin",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	expiredToken, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, expired).
		SignedString([]byte("test-secret-key"))
	assert.NoError(t, err)

	_, err = service.ValidateToken(expiredToken)
	assert.Error(t, err)
}
