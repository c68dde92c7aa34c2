package rbac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorAllowLists(t *testing.T) {
	svc, err := NewRBACService(config.GetDefaultConfig(), schema.NewDefaultRegistry())
	require.NoError(t, err)

	assert.True(t, svc.HasPermission(types.RoleVeterinarian, schema.EntityLivestock, schema.ActionWrite))
	assert.False(t, svc.HasPermission(types.RoleStaff, schema.EntityLivestock, schema.ActionWrite))
	assert.True(t, svc.HasPermission(types.RoleVisitor, schema.EntityAssets, schema.ActionRead))
	assert.True(t, svc.HasPermission(types.RoleManager, schema.EntityLivestockMovements, schema.ActionApprove))
	assert.False(t, svc.HasPermission(types.RoleStaff, schema.EntityLivestockMovements, schema.ActionApprove))

	assert.Equal(t, []types.Role{types.RoleAdmin}, svc.Roles(EntityUsers, schema.ActionDelete))
	assert.ElementsMatch(t, []types.Role{types.RoleAdmin, types.RoleManager}, svc.Roles(EntityAuditLogs, schema.ActionRead))
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assets": {"delete": ["manager"]}}`), 0o600))

	cfg := config.GetDefaultConfig()
	cfg.RBAC.RolesConfigPath = path

	svc, err := NewRBACService(cfg, schema.NewDefaultRegistry())
	require.NoError(t, err)

	assert.Equal(t, []types.Role{types.RoleManager}, svc.Roles(schema.EntityAssets, schema.ActionDelete))
	// untouched actions keep their defaults
	assert.True(t, svc.HasPermission(types.RoleAdmin, schema.EntityAssets, schema.ActionWrite))
}

func TestMissingOverrideFile(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.RBAC.RolesConfigPath = filepath.Join(t.TempDir(), "missing.json")

	_, err := NewRBACService(cfg, schema.NewDefaultRegistry())
	assert.Error(t, err)
}
