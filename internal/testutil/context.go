package testutil

import (
	"context"

	"github.com/kewsys/registry/internal/types"
)

// Test actors
const (
	AdminID   = "0b6f3a52-9d1e-4d7e-8a4f-2f6c1e9b7a01"
	ManagerID = "5c2d8e41-7b3a-4f69-9e12-6a0d4c8b2f02"
	StaffID   = "9e4a1c73-2d5b-4a8e-b6f1-3c7e9d0a5f03"
)

// SetupContext returns a request context acting as the admin
func SetupContext() context.Context {
	return ContextAs(AdminID, "admin", types.RoleAdmin)
}

// ContextAs returns a request context acting as the given identity
func ContextAs(id, username string, role types.Role) context.Context {
	ctx := context.Background()
	ctx = types.SetActor(ctx, id, username, role)
	ctx = types.SetClientInfo(ctx, "127.0.0.1", "testutil")
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}
