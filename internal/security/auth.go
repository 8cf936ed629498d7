// Package security holds the HTTP hardening middleware of the desk server.
package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/paydesk/internal/common"
)

// TokenAuth guards operator endpoints with a static bearer token. An empty
// Token leaves the route open, which is only meant for local development.
type TokenAuth struct {
	Token string
}

// Middleware rejects requests whose bearer token does not match.
func (a TokenAuth) Middleware(next http.Handler) http.Handler {
	want := strings.TrimSpace(a.Token)
	if want == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "bearer "
		if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) || !equal(auth[len(prefix):], want) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="paydesk"`)
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BasicAuth protects a handler with HTTP basic credentials. An empty User
// disables the check.
func BasicAuth(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !equal(u, user) || !equal(p, pass) {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
