package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/pkg/auth"
	"github.com/trexinity/another/test/testutil"
)

func TestJWTManager_GenerateAccessToken(t *testing.T) {
	// Setup
	jwtManager := auth.NewJWTManager("test-secret", "test-issuer", 15*time.Minute)
	session := testutil.CreateTestSession("u1", "ann@example.com")

	// Test
	token, expiresAt, err := jwtManager.GenerateAccessToken(session)

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTManager_GenerateAccessToken_NoUID(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", "test-issuer", time.Minute)

	_, _, err := jwtManager.GenerateAccessToken(domain.UserSession{Email: "x@example.com"})

	assert.Error(t, err)
}

func TestJWTManager_ValidateAccessToken_Success(t *testing.T) {
	// Setup
	jwtManager := auth.NewJWTManager("test-secret", "test-issuer", 15*time.Minute)
	session := testutil.CreateTestSession("u1", "ann@example.com", domain.RoleViewer)
	session.DisplayName = "Ann"
	session.PhotoURL = "https://img.example.com/ann.png"

	token, _, err := jwtManager.GenerateAccessToken(session)
	require.NoError(t, err)

	// Test
	claims, err := jwtManager.ValidateAccessToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "test-issuer", claims.Issuer)

	got := claims.Session()
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "Ann", got.DisplayName)
	assert.Equal(t, "https://img.example.com/ann.png", got.PhotoURL)
	assert.NotNil(t, got.Favorites)
	assert.Empty(t, got.Favorites)
}

func TestJWTManager_ValidateAccessToken_WrongSecret(t *testing.T) {
	signer := auth.NewJWTManager("secret-a", "test-issuer", time.Minute)
	verifier := auth.NewJWTManager("secret-b", "test-issuer", time.Minute)

	token, _, err := signer.GenerateAccessToken(testutil.CreateTestSession("u1", "a@example.com"))
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateAccessToken_WrongIssuer(t *testing.T) {
	signer := auth.NewJWTManager("secret", "other-issuer", time.Minute)
	verifier := auth.NewJWTManager("secret", "test-issuer", time.Minute)

	token, _, err := signer.GenerateAccessToken(testutil.CreateTestSession("u1", "a@example.com"))
	require.NoError(t, err)

	_, err = verifier.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateAccessToken_Expired(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", "test-issuer", time.Minute)

	claims := auth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		UserID:    "u1",
		TokenType: auth.TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = jwtManager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", "test-issuer", time.Minute)

	claims := auth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: "u1"},
		UserID:           "u1",
		TokenType:        auth.TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtManager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_ValidateAccessToken_SubjectFallback(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", "test-issuer", time.Minute)

	claims := auth.CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Subject:   "u9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Email:     "nine@example.com",
		TokenType: auth.TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := jwtManager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u9", got.UserID)
}

func TestGenerateSecret(t *testing.T) {
	a := auth.GenerateSecret()
	b := auth.GenerateSecret()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
