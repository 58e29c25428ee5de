package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/identity-api/internal/access"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/infrastructure/token"
	"github.com/identity-api/internal/transport/http/respond"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFinder loads an identity record by id.
type IdentityFinder interface {
	FindByID(ctx context.Context, identityID string) (*domain.Identity, error)
}

type tokenVerifier interface {
	Verify(tokenStr string) (*token.Claims, error)
}

// Authenticator enforces the access chain every protected route runs:
// bearer token → signature → identity load → fingerprint match →
// phone-verified gate → grant lookup.
type Authenticator struct {
	tokens     tokenVerifier
	identities IdentityFinder
	policy     *access.Policy
}

func NewAuthenticator(tokens tokenVerifier, identities IdentityFinder, policy *access.Policy) *Authenticator {
	return &Authenticator{tokens: tokens, identities: identities, policy: policy}
}

type requirement struct {
	verificationExempt bool
}

type Option func(*requirement)

// VerificationExempt marks a route usable before the caller's phone is
// verified — the verification endpoints themselves, or the caller could
// never get verified.
func VerificationExempt() Option {
	return func(r *requirement) { r.verificationExempt = true }
}

// Require returns middleware that authenticates the caller and checks the
// grant table for (action, resource) at the given scope. A grant at scope
// any satisfies a route requiring own; the reverse does not hold.
func (a *Authenticator) Require(action access.Action, scope access.Scope, resource access.Resource, opts ...Option) func(http.Handler) http.Handler {
	var req requirement
	for _, opt := range opts {
		opt(&req)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := a.authenticate(r)
			if err != nil {
				respond.Error(w, err)
				return
			}
			if !req.verificationExempt && !ident.PhoneVerified {
				respond.Error(w, domain.ErrPhoneNotVerified)
				return
			}
			perm := a.policy.Can(ident.Role, action, resource)
			if !perm.Granted || !scopeSatisfies(perm.Scope, scope) {
				respond.Error(w, domain.ErrHasNoRights)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

// authenticate resolves the bearer token to a live identity. The embedded
// fingerprint must equal the identity's current password digest: a password
// change invalidates every token issued before it, and this comparison is
// the only revocation mechanism.
func (a *Authenticator) authenticate(r *http.Request) (*domain.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, domain.ErrInvalidToken
	}
	claims, err := a.tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return nil, err
	}
	ident, err := a.identities.FindByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if claims.Fingerprint != ident.PasswordHash {
		return nil, domain.ErrInvalidToken
	}
	return ident, nil
}

func scopeSatisfies(granted, required access.Scope) bool {
	return granted == access.ScopeAny || granted == required
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, ident *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*domain.Identity)
	return ident, ok
}
