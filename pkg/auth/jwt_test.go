package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims() Claims {
	return Claims{
		UserID: "user-1",
		Email:  "user@example.com",
		Roles:  []string{"editor"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "molstack",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "molstack"})
	require.NoError(t, err)

	claims, err := validator.ValidateToken(signToken(t, validClaims(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{"editor"}, claims.Roles)
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "molstack"})
	require.NoError(t, err)

	claims := validClaims()
	claims.UserID = ""
	claims.Subject = "subject-7"
	got, err := validator.ValidateToken(signToken(t, claims, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "subject-7", got.UserID)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "molstack"})
	require.NoError(t, err)

	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err = validator.ValidateToken(signToken(t, claims, testSecret))
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "molstack"})
	require.NoError(t, err)

	_, err = validator.ValidateToken(signToken(t, validClaims(), "other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "expected"})
	require.NoError(t, err)

	_, err = validator.ValidateToken(signToken(t, validClaims(), testSecret))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	require.Error(t, err)
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, err := GetUserFromContext(ctx)
	assert.ErrorIs(t, err, ErrNoUser)

	user := &UserContext{UserID: "user-1", Roles: []string{"viewer"}}
	ctx = SetUserInContext(ctx, user)
	got, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}
