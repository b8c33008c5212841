package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerVerify(t *testing.T) {
	b := bearer("secret")
	tests := []struct {
		header string
		want   error
	}{
		{"", errNoCredentials},
		{"secret", errBadScheme},
		{"Basic c2VjcmV0", errBadScheme},
		{"Bearer wrong", errBadToken},
		{"Bearer ", errBadToken},
		{"Bearer secret", nil},
		{"bearer secret", nil},
		{"Bearer  secret ", nil},
	}
	for _, tt := range tests {
		if err := b.verify(tt.header); !errors.Is(err, tt.want) {
			t.Errorf("verify(%q) = %v, want %v", tt.header, err, tt.want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		auth   string
		want   int
	}{
		{"Disabled", "", http.MethodGet, "/v1/events", "", http.StatusNoContent},
		{"NoHeader", "secret", http.MethodGet, "/v1/events", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodPost, "/v1/events", "Bearer nope", http.StatusUnauthorized},
		{"WrongScheme", "secret", http.MethodGet, "/v1/events", "Token secret", http.StatusUnauthorized},
		{"Correct", "secret", http.MethodPost, "/v1/events/Raid1/register", "Bearer secret", http.StatusNoContent},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusNoContent},
		{"HealthPostNotExempt", "secret", http.MethodPost, "/v1/health", "", http.StatusUnauthorized},
		{"StreamGuarded", "secret", http.MethodGet, "/v1/notifications/stream", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tt.token, ok).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.want, rec.Body.String())
			}
			challenge := rec.Header().Get("WWW-Authenticate")
			if (tt.want == http.StatusUnauthorized) != (challenge != "") {
				t.Fatalf("WWW-Authenticate = %q for status %d", challenge, rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_ErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer nope")
	AuthMiddleware("secret", http.NotFoundHandler()).ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "{\"error\":\"invalid token\"}\n" {
		t.Fatalf("body = %q", got)
	}
}

func TestLogRequests_KeepsFlusher(t *testing.T) {
	var flushable bool
	h := logRequests(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK) // ignored by the recorder too
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if !flushable {
		t.Fatal("wrapped writer lost http.Flusher")
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}
