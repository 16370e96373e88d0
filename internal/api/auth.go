package api

import (
	"context"
	"net/http"

	"github.com/SpherCodes/nexguard-surveillance/internal/authn"
)

type principalCtxKey struct{}

// RequireAuth is chi-middleware-shaped gate behind the Authenticator
// contract: the core never issues or validates credentials itself, it
// only consumes whatever Principal the Authenticator yields (spec.md's
// external collaborators boundary). Unauthenticated requests get 401,
// matching the teacher's jwt_auth.go convention of rejecting before
// the handler runs.
func RequireAuth(a authn.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := a.Authenticate(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), principalCtxKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (authn.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(authn.Principal)
	return p, ok
}
