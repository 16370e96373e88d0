// Package authn implements the narrow Authenticator contract this
// module depends on: yield a principal from a bearer token, nothing
// more. User registration, role management, password hashing, and
// token issuance are out of scope per the specification and are not
// reimplemented here. Grounded on the teacher's internal/tokens/jwt.go
// claims shape and internal/middleware/jwt_auth.go's header-parsing
// convention, narrowed to validation only (no blacklist, no token
// type/refresh distinction).
package authn

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the caller identity extracted from a validated token.
type Principal struct {
	Subject  string
	TenantID string
}

// Claims mirrors the teacher's JWT claims shape, minus the
// token-rotation/blacklist fields this module has no use for.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Authenticator validates a bearer token and yields a Principal.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// JWTAuthenticator validates HS256-signed tokens against a single
// signing key, matching the teacher's single-key (no rotation) mode.
type JWTAuthenticator struct {
	signingKey []byte
}

func NewJWTAuthenticator(signingKey string) *JWTAuthenticator {
	return &JWTAuthenticator{signingKey: []byte(signingKey)}
}

// Authenticate reads "Authorization: Bearer <token>" or a "session"
// cookie, matching spec.md's "token or cookie" contract.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	tokenString, err := extractToken(r)
	if err != nil {
		return Principal{}, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return Principal{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	return Principal{Subject: claims.Subject, TenantID: claims.TenantID}, nil
}

func extractToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1], nil
		}
		return "", errors.New("malformed Authorization header")
	}

	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value, nil
	}

	return "", errors.New("missing credentials")
}
