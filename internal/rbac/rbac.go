package rbac

import (
	"fmt"
	"os"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/schema"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// Entities outside the generic registry
const (
	EntityUsers     = "users"
	EntityAuditLogs = "audit-logs"
)

// RBACService answers role allow-list checks with set-based lookups
type RBACService struct {
	// role -> entity -> action
	permissions map[types.Role]map[string]map[schema.Action]bool
}

// Override is the optional roles file: entity -> action -> roles.
// Listed actions replace the built in allow-list of that entity.
type Override map[string]map[schema.Action][]types.Role

// NewRBACService builds the allow-lists from the entity descriptors, then
// applies the override file when rbac.roles_config_path is set
func NewRBACService(cfg *config.Configuration, registry *schema.Registry) (*RBACService, error) {
	access := make(map[string]schema.Access, len(registry.All())+2)
	for _, e := range registry.All() {
		access[e.Name] = e.Access
	}
	access[EntityUsers] = schema.Access{
		Read:   []types.Role{types.RoleAdmin},
		Write:  []types.Role{types.RoleAdmin},
		Delete: []types.Role{types.RoleAdmin},
	}
	access[EntityAuditLogs] = schema.Access{
		Read: []types.Role{types.RoleAdmin, types.RoleManager},
	}

	s := &RBACService{permissions: make(map[types.Role]map[string]map[schema.Action]bool)}
	for entity, a := range access {
		for _, action := range []schema.Action{schema.ActionRead, schema.ActionWrite, schema.ActionDelete, schema.ActionApprove} {
			roles := a.Roles(action)
			if action == schema.ActionRead && len(roles) == 0 {
				roles = types.AllRoles
			}
			s.grant(entity, action, roles)
		}
	}

	if cfg.RBAC.RolesConfigPath == "" {
		return s, nil
	}

	data, err := os.ReadFile(cfg.RBAC.RolesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read roles config: %w", err)
	}
	var override Override
	if err := jsoniter.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse roles config: %w", err)
	}
	s.apply(override)
	return s, nil
}

func (s *RBACService) grant(entity string, action schema.Action, roles []types.Role) {
	for _, role := range roles {
		if s.permissions[role] == nil {
			s.permissions[role] = make(map[string]map[schema.Action]bool)
		}
		if s.permissions[role][entity] == nil {
			s.permissions[role][entity] = make(map[schema.Action]bool)
		}
		s.permissions[role][entity][action] = true
	}
}

func (s *RBACService) apply(override Override) {
	for entity, actions := range override {
		for action, roles := range actions {
			for _, perms := range s.permissions {
				if perms[entity] != nil {
					delete(perms[entity], action)
				}
			}
			s.grant(entity, action, lo.Filter(roles, func(r types.Role, _ int) bool { return r.IsValid() }))
		}
	}
}

// HasPermission reports whether role may perform action on entity
func (s *RBACService) HasPermission(role types.Role, entity string, action schema.Action) bool {
	return s.permissions[role] != nil &&
		s.permissions[role][entity] != nil &&
		s.permissions[role][entity][action]
}

// Roles lists the roles allowed to perform action on entity
func (s *RBACService) Roles(entity string, action schema.Action) []types.Role {
	return lo.Filter(types.AllRoles, func(r types.Role, _ int) bool {
		return s.HasPermission(r, entity, action)
	})
}
