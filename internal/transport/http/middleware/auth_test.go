package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identity-api/internal/access"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/token"
)

type stubFinder struct {
	ident *domain.Identity
	err   error
}

func (s stubFinder) FindByID(_ context.Context, _ string) (*domain.Identity, error) {
	return s.ident, s.err
}

func testProvider(t *testing.T) *token.Provider {
	t.Helper()
	p, err := token.NewProvider("test-secret")
	require.NoError(t, err)
	return p
}

func verifiedUser() *domain.Identity {
	return &domain.Identity{
		IdentityID:    "id-1",
		Role:          domain.RoleUser,
		PasswordHash:  "$2a$10$digest",
		PhoneVerified: true,
	}
}

// okHandler records whether the chain reached it and whether the identity
// made it into the request context.
func okHandler(reached *bool, gotIdent **domain.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		if ident, ok := IdentityFromContext(r.Context()); ok {
			*gotIdent = ident
		}
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, authHeader string) (*httptest.ResponseRecorder, bool, *domain.Identity) {
	t.Helper()
	var reached bool
	var gotIdent *domain.Identity
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	mw(okHandler(&reached, &gotIdent)).ServeHTTP(rec, req)
	return rec, reached, gotIdent
}

func TestRequire_MissingHeader(t *testing.T) {
	auth := NewAuthenticator(testProvider(t), stubFinder{}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequire_MalformedToken(t *testing.T) {
	auth := NewAuthenticator(testProvider(t), stubFinder{}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "Bearer not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequire_UnknownIdentity(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{err: domain.ErrNotFound}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequire_StaleFingerprintAfterPasswordChange(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	// The stored digest moved on; tokens minted before the change die here.
	current := verifiedUser()
	current.PasswordHash = "$2a$10$rotated-digest"
	auth := NewAuthenticator(provider, stubFinder{ident: current}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequire_PhoneNotVerified(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	ident.PhoneVerified = false
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{ident: ident}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequire_VerificationExemptAllowsUnverified(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	ident.PhoneVerified = false
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{ident: ident}, access.NewPolicy())
	mw := auth.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser, VerificationExempt())

	rec, reached, got := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, "id-1", got.IdentityID)
}

func TestRequire_UserDeniedAnyScope(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{ident: ident}, access.NewPolicy())
	mw := auth.Require(access.ActionUpdate, access.ScopeAny, access.ResourceUser)

	rec, reached, _ := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequire_AdminAnySatisfiesOwn(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	ident.Role = domain.RoleAdmin
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{ident: ident}, access.NewPolicy())
	mw := auth.Require(access.ActionUpdate, access.ScopeOwn, access.ResourcePassword)

	rec, reached, _ := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequire_UserAllowedOwnScope(t *testing.T) {
	provider := testProvider(t)
	ident := verifiedUser()
	tok, err := provider.Sign(ident)
	require.NoError(t, err)

	auth := NewAuthenticator(provider, stubFinder{ident: ident}, access.NewPolicy())
	mw := auth.Require(access.ActionUpdate, access.ScopeOwn, access.ResourcePassword)

	rec, reached, got := doRequest(t, mw, "Bearer "+tok)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, ident.PasswordHash, got.PasswordHash)
}
