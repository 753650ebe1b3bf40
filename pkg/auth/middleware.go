package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/trexinity/another/internal/catalog/domain"
	apperrors "github.com/trexinity/another/pkg/errors"
	"github.com/trexinity/another/pkg/interfaces"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// ContextKeyClaims is the context key for JWT claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeySession is the context key for the resolved session
	ContextKeySession ContextKey = "session"
)

// ErrorWriter renders an application error as an HTTP response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates bearer tokens and guards routes.
type Middleware struct {
	jwtManager *JWTManager
	authz      *Authorizer
	writeError ErrorWriter
	logger     interfaces.Logger
}

// NewMiddleware creates the HTTP auth middleware. A nil writeError falls
// back to plain-text responses.
func NewMiddleware(jwtManager *JWTManager, authz *Authorizer, writeError ErrorWriter, logger interfaces.Logger) *Middleware {
	if writeError == nil {
		writeError = plainError
	}
	return &Middleware{
		jwtManager: jwtManager,
		authz:      authz,
		writeError: writeError,
		logger:     logger,
	}
}

// Authenticate resolves the bearer token, if any, into a session on the
// request context. Requests without a token pass through anonymously; a
// token that fails verification is rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(token)
		if err != nil {
			m.logger.Debug("Rejected bearer token", interfaces.Error(err))
			m.writeError(w, r, apperrors.Unauthorized("invalid token"))
			return
		}

		session := claims.Session()
		session.Roles = m.authz.RolesFor(claims.Email)

		ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
		ctx = WithSession(ctx, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			m.writeError(w, r, apperrors.AuthRequired(r.Method+" "+r.URL.Path))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects requests whose session may not perform action
// on resource.
func (m *Middleware) RequirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, _ := SessionFromContext(r.Context())
			if err := m.authz.Authorize(session, resource, action); err != nil {
				m.writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		token = header
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case apperrors.IsUnauthorized(err):
		code = http.StatusUnauthorized
	case apperrors.IsForbidden(err):
		code = http.StatusForbidden
	}
	http.Error(w, err.Error(), code)
}

// WithSession stores session on ctx.
func WithSession(ctx context.Context, session domain.UserSession) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}

// SessionFromContext returns the signed-in session, if any.
func SessionFromContext(ctx context.Context) (domain.UserSession, bool) {
	session, ok := ctx.Value(ContextKeySession).(domain.UserSession)
	if !ok || session.UID == "" {
		return domain.UserSession{}, false
	}
	return session, true
}

// GetClaimsFromContext extracts JWT claims from context
func GetClaimsFromContext(ctx context.Context) (*CustomClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*CustomClaims)
	return claims, ok
}
