package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/pkg/interfaces"
)

// Permission is a resource/action pair.
type Permission struct {
	Resource string
	Action   string
}

// CasbinRBAC provides Casbin-based role-based access control
type CasbinRBAC struct {
	enforcer *casbin.Enforcer
	logger   interfaces.Logger
	mu       sync.RWMutex
}

// NewCasbinRBAC creates a new Casbin-based RBAC instance
func NewCasbinRBAC(modelPath, policyPath string, logger interfaces.Logger) (*CasbinRBAC, error) {
	m, err := model.NewModelFromFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, policyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	return &CasbinRBAC{
		enforcer: enforcer,
		logger:   logger,
	}, nil
}

// NewCasbinRBACFromString creates a new Casbin-based RBAC instance from string configs.
// policyText uses the CSV policy format ("p, role, resource, action" and
// "g, role, parent").
func NewCasbinRBACFromString(modelText, policyText string, logger interfaces.Logger) (*CasbinRBAC, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	for _, line := range strings.Split(policyText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) > MinimumPolicyParts:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return nil, fmt.Errorf("failed to add policy %q: %w", line, err)
			}
		case parts[0] == "g" && len(parts) >= MinimumPolicyParts:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return nil, fmt.Errorf("failed to add grouping policy %q: %w", line, err)
			}
		}
	}

	return &CasbinRBAC{
		enforcer: enforcer,
		logger:   logger,
	}, nil
}

// CheckPermission checks if a role has permission to perform an action on a resource
func (r *CasbinRBAC) CheckPermission(role, resource, action string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed, err := r.enforcer.Enforce(role, resource, action)
	if err != nil {
		r.logger.Error("Failed to check permission",
			interfaces.Error(err),
			interfaces.String("role", role),
			interfaces.String("resource", resource),
			interfaces.String("action", action))
		return false
	}

	return allowed
}

// CheckPermissions checks if any of the roles have permission to perform an action on a resource
func (r *CasbinRBAC) CheckPermissions(roles []string, resource, action string) bool {
	for _, role := range roles {
		if r.CheckPermission(role, resource, action) {
			return true
		}
	}
	return false
}

// AddRole grants permissions to role.
func (r *CasbinRBAC) AddRole(role string, permissions []Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, perm := range permissions {
		if _, err := r.enforcer.AddPolicy(role, perm.Resource, perm.Action); err != nil {
			return fmt.Errorf("failed to add permission %s:%s to role %s: %w",
				perm.Resource, perm.Action, role, err)
		}
	}

	r.logger.Debug("Role configured",
		interfaces.String("role", role),
		interfaces.Int("permissions", len(permissions)))

	return nil
}

// InheritRole makes role inherit every permission of parent.
func (r *CasbinRBAC) InheritRole(role, parent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.enforcer.AddGroupingPolicy(role, parent); err != nil {
		return fmt.Errorf("failed to make %s inherit %s: %w", role, parent, err)
	}
	return nil
}

// InitializeDefaultPolicies sets up the storefront policies. Viewers browse
// the catalog, engage with titles and manage their own library; admins
// additionally edit the catalog.
func InitializeDefaultPolicies(rbac *CasbinRBAC) error {
	defaultPolicies := map[string][]Permission{
		domain.RoleViewer: {
			{Resource: ResourceCatalog, Action: ActionRead},
			{Resource: ResourceEngagement, Action: ActionWrite},
			{Resource: ResourceLibrary, Action: ActionRead},
			{Resource: ResourceLibrary, Action: ActionWrite},
			{Resource: ResourceLibrary, Action: ActionDelete},
		},
		domain.RoleAdmin: {
			{Resource: ResourceCatalog, Action: ActionWrite},
			{Resource: ResourceCatalog, Action: ActionDelete},
		},
	}

	for role, permissions := range defaultPolicies {
		if err := rbac.AddRole(role, permissions); err != nil {
			return fmt.Errorf("failed to initialize role %s: %w", role, err)
		}
	}

	return rbac.InheritRole(domain.RoleAdmin, domain.RoleViewer)
}
