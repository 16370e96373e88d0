package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SpherCodes/nexguard-surveillance/internal/authn"
)

type fakeAuthenticator struct {
	principal authn.Principal
	err       error
}

func (f fakeAuthenticator) Authenticate(r *http.Request) (authn.Principal, error) {
	return f.principal, f.err
}

func TestRequireAuthRejectsOnAuthenticatorError(t *testing.T) {
	handlerCalled := false
	h := RequireAuth(fakeAuthenticator{err: errors.New("no credentials")})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/webrtc/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, handlerCalled)
}

func TestRequireAuthPassesPrincipalThrough(t *testing.T) {
	want := authn.Principal{Subject: "user-1", TenantID: "tenant-1"}
	var got authn.Principal

	h := RequireAuth(fakeAuthenticator{principal: want})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/webrtc/1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, want, got)
}
