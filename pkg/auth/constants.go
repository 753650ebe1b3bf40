package auth

import "time"

const (
	// Token constants.
	TokenKeySize     = 32
	DefaultAccessTTL = 15 * time.Minute
	TokenTypeAccess  = "access"

	// RBAC constants.
	MinimumPolicyParts = 3
)

// Resources guarded by the policy.
const (
	ResourceCatalog    = "catalog"    // titles under movies/
	ResourceEngagement = "engagement" // views and likes
	ResourceLibrary    = "library"    // the caller's own watchlist, favorites and progress
)

// Actions.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)
