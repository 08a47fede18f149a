package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watch-party-service/internal/mocks"
	"watch-party-service/internal/models"
	"watch-party-service/internal/repositories"
)

func signToken(t *testing.T, secret string, userID int, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveValidToken(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	resolver := NewJWTResolver("secret", users)

	users.On("GetUser", mock.Anything, 7).Return(models.User{ID: 7, Username: "amy"}, nil).Once()

	token := signToken(t, "secret", 7, time.Now().Add(time.Hour))
	user, err := resolver.Resolve(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	users.AssertExpectations(t)
}

func TestResolveRejectsWrongSecret(t *testing.T) {
	resolver := NewJWTResolver("secret", new(mocks.UserRepositoryMock))

	token := signToken(t, "other", 7, time.Now().Add(time.Hour))
	_, err := resolver.Resolve(context.Background(), token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsExpiredToken(t *testing.T) {
	resolver := NewJWTResolver("secret", new(mocks.UserRepositoryMock))

	token := signToken(t, "secret", 7, time.Now().Add(-time.Hour))
	_, err := resolver.Resolve(context.Background(), token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	resolver := NewJWTResolver("secret", users)

	users.On("GetUser", mock.Anything, 7).Return(models.User{}, repositories.ErrUserNotFound).Once()

	token := signToken(t, "secret", 7, time.Now().Add(time.Hour))
	_, err := resolver.Resolve(context.Background(), token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsEmptyToken(t *testing.T) {
	resolver := NewJWTResolver("secret", new(mocks.UserRepositoryMock))
	_, err := resolver.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", TokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", TokenFromHeader("bearer abc"))
	assert.Empty(t, TokenFromHeader("abc"))
	assert.Empty(t, TokenFromHeader(""))
}
