package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmuslimabdulj/talep-presence/internal/auth"
	"github.com/mmuslimabdulj/talep-presence/internal/domain"
	"github.com/rs/zerolog"
)

type principalKey struct{}

// TokenVerifier turns a raw token into a principal
type TokenVerifier interface {
	Verify(token string) (*domain.Principal, error)
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated principal, or nil
func PrincipalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey{}).(*domain.Principal)
	return p
}

// Authenticate requires a valid bearer token and stores its principal on the
// request context. Missing or invalid tokens get 401.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := verifier.Verify(auth.BearerToken(r))
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("authentication failed")
				if errors.Is(err, auth.ErrMissingToken) {
					WriteError(w, http.StatusUnauthorized, "token required")
					return
				}
				WriteError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRoles answers 403 unless the authenticated principal has one of roles
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !PrincipalFrom(r.Context()).HasRole(roles...) {
				WriteError(w, http.StatusForbidden, "you are not allowed to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
