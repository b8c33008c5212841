package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// bearer is the shared secret clients send as "Authorization: Bearer <t>".
type bearer string

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("invalid authorization scheme")
	errBadToken      = errors.New("invalid token")
)

// verify checks one Authorization header value. The scheme is matched
// case-insensitively.
func (b bearer) verify(header string) error {
	if header == "" {
		return errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return errBadScheme
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(b)) != 1 {
		return errBadToken
	}
	return nil
}

// AuthMiddleware requires the bearer token on every request except
// GET /v1/health. An empty token disables the check.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	b := bearer(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if err := b.verify(r.Header.Get("Authorization")); err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="muster"`)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
