package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kewsys/registry/internal/auth"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/types"
)

// Authenticator resolves a bearer token to the identity of a live user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthenticateMiddleware accepts a bearer token from the Authorization header or,
// for websocket clients that cannot set headers, from the token query parameter.
// It stores the actor id, username and role in the request context.
func AuthenticateMiddleware(authenticator Authenticator, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		claims, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.WithContext(c.Request.Context()).Debugw("rejected bearer token", "error", err)
			_ = c.Error(err)
			c.Abort()
			return
		}

		ctx := types.SetActor(c.Request.Context(), claims.UserID, claims.Username, claims.Role)
		ctx = context.WithValue(ctx, types.CtxJWT, token)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(types.HeaderAuthorization)
	if header == "" {
		if token := c.Query(types.QueryToken); token != "" {
			return token, nil
		}
		return "", ierr.NewError("missing authorization header").
			WithHint("Access token required").
			Mark(ierr.ErrUnauthorized)
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", ierr.NewError("malformed authorization header").
			WithHint("Invalid authorization header format").
			Mark(ierr.ErrUnauthorized)
	}
	return strings.TrimSpace(token), nil
}
