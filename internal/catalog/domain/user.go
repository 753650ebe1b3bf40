package domain

import (
	"slices"
	"time"
)

// Role names carried by a session.
const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

// UserSession is the signed-in user as seen by the storefront. It is
// derived from the bearer token and the users/{uid} record, never stored.
type UserSession struct {
	UID         string   `json:"uid"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName,omitempty"`
	PhotoURL    string   `json:"photoURL,omitempty"`
	Favorites   []string `json:"favorites"`
	Roles       []string `json:"roles,omitempty"`
}

// HasRole reports whether the session carries role.
func (s UserSession) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// Profile is the users/{uid} record written on first sign-in.
type Profile struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WatchProgress is stored at users/{uid}/watchProgress/{titleId}.
// Progress and Duration are in seconds.
type WatchProgress struct {
	Progress      float64   `json:"progress"`
	Duration      float64   `json:"duration"`
	LastWatchedAt time.Time `json:"lastWatchedAt"`
}

// WatchHistoryEntry is stored at users/{uid}/watchHistory/{titleId}.
type WatchHistoryEntry struct {
	TitleID   string    `json:"titleId"`
	WatchedAt time.Time `json:"watchedAt"`
}
