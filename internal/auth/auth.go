package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"watch-party-service/internal/models"
	"watch-party-service/internal/repositories"
)

var ErrInvalidToken = errors.New("invalid token")

// Resolver turns a bearer credential into a user record. All identity in the
// service flows through here; event payloads are never trusted for the actor.
type Resolver interface {
	Resolve(ctx context.Context, token string) (models.User, error)
}

// JWTResolver validates HS256 tokens and looks the subject up in storage.
type JWTResolver struct {
	secret []byte
	users  repositories.UserRepository
}

// NewJWTResolver constructs a JWTResolver.
func NewJWTResolver(secret string, users repositories.UserRepository) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), users: users}
}

type claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Resolve verifies the token signature and expiry, then resolves the user.
func (r *JWTResolver) Resolve(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return models.User{}, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == 0 {
		return models.User{}, ErrInvalidToken
	}

	user, err := r.users.GetUser(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.User{}, ErrInvalidToken
		}
		return models.User{}, err
	}
	return user, nil
}

// TokenFromHeader extracts the raw token from an Authorization header value.
func TokenFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
