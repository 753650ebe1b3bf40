package auth

import (
	"fmt"
	"os"

	"github.com/trexinity/another/pkg/config"
	"github.com/trexinity/another/pkg/interfaces"
)

const defaultModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act`

// NewRBACFromConfig loads the casbin model and policy named in cfg, falling
// back to the embedded storefront policy when either file is missing.
func NewRBACFromConfig(cfg config.AuthConfig, logger interfaces.Logger) (*CasbinRBAC, error) {
	if cfg.CasbinModelPath != "" && cfg.CasbinPolicyPath != "" {
		if _, err := os.Stat(cfg.CasbinModelPath); err == nil {
			if _, err := os.Stat(cfg.CasbinPolicyPath); err == nil {
				logger.Info("Loading casbin policy from files",
					interfaces.String("model", cfg.CasbinModelPath),
					interfaces.String("policy", cfg.CasbinPolicyPath))
				return NewCasbinRBAC(cfg.CasbinModelPath, cfg.CasbinPolicyPath, logger)
			}
		}
		logger.Warn("Casbin files not found, using embedded policy",
			interfaces.String("model", cfg.CasbinModelPath),
			interfaces.String("policy", cfg.CasbinPolicyPath))
	}

	rbac, err := NewCasbinRBACFromString(defaultModel, "", logger)
	if err != nil {
		return nil, err
	}

	if err := InitializeDefaultPolicies(rbac); err != nil {
		return nil, fmt.Errorf("failed to initialize default policies: %w", err)
	}

	return rbac, nil
}
