package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxUsername  ContextKey = "ctx_username"
	CtxRole      ContextKey = "ctx_role"
	CtxJWT       ContextKey = "ctx_jwt"
	CtxIPAddress ContextKey = "ctx_ip_address"
	CtxUserAgent ContextKey = "ctx_user_agent"

	// DefaultUserID is the actor used by scripts and tests when no user is authenticated
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetUsername(ctx context.Context) string {
	if username, ok := ctx.Value(CtxUsername).(string); ok {
		return username
	}
	return ""
}

// GetRole returns the role claim of the authenticated actor
func GetRole(ctx context.Context) Role {
	if role, ok := ctx.Value(CtxRole).(Role); ok {
		return role
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetJWT(ctx context.Context) string {
	if jwt, ok := ctx.Value(CtxJWT).(string); ok {
		return jwt
	}
	return ""
}

func GetIPAddress(ctx context.Context) string {
	if ip, ok := ctx.Value(CtxIPAddress).(string); ok {
		return ip
	}
	return ""
}

func GetUserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(CtxUserAgent).(string); ok {
		return ua
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetActor stores the authenticated identity in the context
func SetActor(ctx context.Context, userID, username string, role Role) context.Context {
	ctx = context.WithValue(ctx, CtxUserID, userID)
	ctx = context.WithValue(ctx, CtxUsername, username)
	return context.WithValue(ctx, CtxRole, role)
}

// SetClientInfo stores the caller's address and user agent for audit entries
func SetClientInfo(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, CtxIPAddress, ip)
	return context.WithValue(ctx, CtxUserAgent, userAgent)
}
