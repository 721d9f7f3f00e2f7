package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/prn-tf/digital-galaxy/internal/domain"
)

// contextKey is a private type for context keys.
type contextKey string

// PrincipalContextKey is the context key for the resolved principal.
const PrincipalContextKey contextKey = "principal"

// AccessTokenParam carries the token on websocket upgrades, where browsers
// cannot set an Authorization header.
const AccessTokenParam = "access_token"

// Middleware resolves the request credential and stores the principal in the
// request context. Requests are never rejected here; handlers decide what
// each operation requires.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := resolver.Resolve(r.Context(), ExtractToken(r))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// ExtractToken returns the bearer token of r, or the access_token query
// parameter on websocket upgrades. It returns "" when neither is present.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}

	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get(AccessTokenParam)
	}
	return ""
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// GetPrincipal retrieves the principal from a request context.
// A context without one yields domain.Anonymous.
func GetPrincipal(ctx context.Context) domain.Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(domain.Principal); ok {
		return p
	}
	return domain.Anonymous()
}
