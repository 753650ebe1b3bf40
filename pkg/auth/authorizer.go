package auth

import (
	"strings"

	"github.com/trexinity/another/internal/catalog/domain"
	apperrors "github.com/trexinity/another/pkg/errors"
)

// Authorizer resolves session roles and checks them against the policy.
// The admin role is granted only through the e-mail allow-list; roles
// carried in a token are never trusted.
type Authorizer struct {
	rbac   *CasbinRBAC
	admins map[string]struct{}
}

// NewAuthorizer creates an Authorizer. Admin e-mails match case-insensitively.
func NewAuthorizer(rbac *CasbinRBAC, adminEmails []string) *Authorizer {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = struct{}{}
		}
	}
	return &Authorizer{rbac: rbac, admins: admins}
}

// RolesFor returns the roles of a signed-in user with the given e-mail.
func (a *Authorizer) RolesFor(email string) []string {
	if a.IsAdmin(email) {
		return []string{domain.RoleViewer, domain.RoleAdmin}
	}
	return []string{domain.RoleViewer}
}

// IsAdmin reports whether email is on the allow-list.
func (a *Authorizer) IsAdmin(email string) bool {
	_, ok := a.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Authorize returns AuthRequired for an anonymous session and Forbidden
// when none of the session's roles may perform action on resource.
func (a *Authorizer) Authorize(session domain.UserSession, resource, action string) error {
	if session.UID == "" {
		return apperrors.AuthRequired(resource + " " + action)
	}
	if !a.rbac.CheckPermissions(session.Roles, resource, action) {
		return apperrors.Forbidden("not allowed to " + action + " " + resource)
	}
	return nil
}
