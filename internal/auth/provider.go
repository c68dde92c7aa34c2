package auth

import (
	"context"
	"time"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/types"
)

// Claims is what a valid bearer token asserts about its holder
type Claims struct {
	UserID   string
	Username string
	Role     types.Role
}

// Token is a signed bearer token
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Provider issues and verifies bearer tokens
type Provider interface {
	GenerateToken(claims Claims) (*Token, error)
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

func NewProvider(cfg *config.Configuration) Provider {
	return NewJWTAuth(cfg)
}
