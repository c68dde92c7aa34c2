package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kewsys/registry/internal/config"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
)

const defaultTokenTTL = 24 * time.Hour

type jwtAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuth(cfg *config.Configuration) *jwtAuth {
	ttl := cfg.Auth.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &jwtAuth{
		secret: []byte(cfg.Auth.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (a *jwtAuth) GenerateToken(c Claims) (*Token, error) {
	now := a.now()
	expiration := now.Add(a.ttl)

	claims := jwt.MapClaims{
		"user_id":  c.UserID,
		"username": c.Username,
		"role":     string(c.Role),
		"exp":      expiration.Unix(),
		"iat":      now.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return &Token{Value: signed, ExpiresAt: expiration}, nil
}

func (a *jwtAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthorized)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthorized)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthorized)
	}

	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if !types.Role(role).IsValid() {
		return nil, ierr.NewErrorf("token carries unknown role %q", role).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthorized)
	}

	return &Claims{UserID: userID, Username: username, Role: types.Role(role)}, nil
}
