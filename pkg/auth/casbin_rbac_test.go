package auth_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/pkg/config"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/logger"
)

type CasbinRBACTestSuite struct {
	suite.Suite
	rbac *auth.CasbinRBAC
}

func (suite *CasbinRBACTestSuite) SetupTest() {
	var err error
	suite.rbac, err = auth.NewRBACFromConfig(config.AuthConfig{}, logger.NewNoopLogger())
	suite.Require().NoError(err)
}

func (suite *CasbinRBACTestSuite) TestViewerPermissions() {
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleViewer, auth.ResourceCatalog, auth.ActionRead))
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleViewer, auth.ResourceEngagement, auth.ActionWrite))
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleViewer, auth.ResourceLibrary, auth.ActionWrite))
	assert.False(suite.T(), suite.rbac.CheckPermission(domain.RoleViewer, auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), suite.rbac.CheckPermission(domain.RoleViewer, auth.ResourceCatalog, auth.ActionDelete))
}

func (suite *CasbinRBACTestSuite) TestAdminInheritsViewer() {
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleAdmin, auth.ResourceCatalog, auth.ActionWrite))
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleAdmin, auth.ResourceCatalog, auth.ActionDelete))
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleAdmin, auth.ResourceCatalog, auth.ActionRead))
	assert.True(suite.T(), suite.rbac.CheckPermission(domain.RoleAdmin, auth.ResourceLibrary, auth.ActionRead))
}

func (suite *CasbinRBACTestSuite) TestCheckPermissions() {
	assert.True(suite.T(), suite.rbac.CheckPermissions([]string{"unknown", domain.RoleAdmin}, auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), suite.rbac.CheckPermissions([]string{domain.RoleViewer}, auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), suite.rbac.CheckPermissions(nil, auth.ResourceCatalog, auth.ActionRead))
}

func (suite *CasbinRBACTestSuite) TestAddRole() {
	err := suite.rbac.AddRole("curator", []auth.Permission{{Resource: auth.ResourceCatalog, Action: auth.ActionWrite}})
	suite.Require().NoError(err)

	assert.True(suite.T(), suite.rbac.CheckPermission("curator", auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), suite.rbac.CheckPermission("curator", auth.ResourceCatalog, auth.ActionDelete))
}

func (suite *CasbinRBACTestSuite) TestAuthorizer() {
	authz := auth.NewAuthorizer(suite.rbac, []string{" Boss@Example.com "})

	// Arrange
	admin := domain.UserSession{UID: "a1", Email: "boss@example.com", Roles: authz.RolesFor("BOSS@example.com")}
	viewer := domain.UserSession{UID: "v1", Email: "v@example.com", Roles: authz.RolesFor("v@example.com")}

	// Assert
	assert.True(suite.T(), authz.IsAdmin("boss@EXAMPLE.com"))
	assert.False(suite.T(), authz.IsAdmin(""))
	assert.NoError(suite.T(), authz.Authorize(admin, auth.ResourceCatalog, auth.ActionWrite))
	assert.True(suite.T(), apperrors.IsForbidden(authz.Authorize(viewer, auth.ResourceCatalog, auth.ActionWrite)))
	assert.NoError(suite.T(), authz.Authorize(viewer, auth.ResourceLibrary, auth.ActionWrite))
	assert.True(suite.T(), apperrors.IsUnauthorized(authz.Authorize(domain.UserSession{}, auth.ResourceLibrary, auth.ActionRead)))
}

func (suite *CasbinRBACTestSuite) TestFromFiles() {
	dir := suite.T().TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")

	model := "[request_definition]\nr = sub, obj, act\n\n[policy_definition]\np = sub, obj, act\n\n" +
		"[role_definition]\ng = _, _\n\n[policy_effect]\ne = some(where (p.eft == allow))\n\n" +
		"[matchers]\nm = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act\n"
	suite.Require().NoError(os.WriteFile(modelPath, []byte(model), 0o600))
	suite.Require().NoError(os.WriteFile(policyPath, []byte("p, editor, catalog, write\n"), 0o600))

	rbac, err := auth.NewRBACFromConfig(config.AuthConfig{
		CasbinModelPath:  modelPath,
		CasbinPolicyPath: policyPath,
	}, logger.NewNoopLogger())
	suite.Require().NoError(err)

	assert.True(suite.T(), rbac.CheckPermission("editor", auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), rbac.CheckPermission(domain.RoleAdmin, auth.ResourceCatalog, auth.ActionWrite))
}

func (suite *CasbinRBACTestSuite) TestFromString() {
	policy := `
# comment
p, editor, catalog, write
g, chief, editor
`
	rbac, err := auth.NewCasbinRBACFromString(`[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act`, policy, logger.NewNoopLogger())
	suite.Require().NoError(err)

	assert.True(suite.T(), rbac.CheckPermission("chief", auth.ResourceCatalog, auth.ActionWrite))
	assert.False(suite.T(), rbac.CheckPermission("chief", auth.ResourceCatalog, auth.ActionDelete))
}

func TestCasbinRBACTestSuite(t *testing.T) {
	suite.Run(t, new(CasbinRBACTestSuite))
}
