package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/roster"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/templates", s.handleListTemplates)
	mux.HandleFunc("POST /v1/events", s.handleCreateEvent)
	mux.HandleFunc("POST /v1/events/form", s.handleCreateFromForm)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/{name}", s.handleGetEvent)
	mux.HandleFunc("POST /v1/events/{name}/register", s.handleRegister)
	mux.HandleFunc("POST /v1/events/{name}/unregister", s.handleUnregister)
	mux.HandleFunc("POST /v1/events/{name}/switch", s.handleSwitchRole)
	mux.HandleFunc("GET /v1/events/{name}/journal", s.handleGetJournal)
	mux.HandleFunc("POST /v1/messages", s.handleMessage)
	mux.HandleFunc("GET /v1/announcements/{ref}", s.handleGetAnnouncement)
	mux.HandleFunc("GET /v1/channels/{channel}/messages", s.handleListChannel)
	mux.HandleFunc("POST /v1/channels/{channel}/clear", s.handleClearChannel)
	mux.HandleFunc("POST /v1/scanner/tick", s.handleScannerTick)
	mux.HandleFunc("GET /v1/calendar.ics", s.handleCalendarFeed)
	mux.HandleFunc("GET /v1/notifications/stream", s.handleNotificationStream)
	return logRequests(AuthMiddleware(authToken, mux))
}

// logRequests logs every finished request at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

// statusWriter remembers the status code. It passes Flush through so the
// notification stream keeps working behind it.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status, w.written = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListTemplates handles GET /v1/templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := s.roster.Catalog().Templates()
	if templates == nil {
		templates = []model.RoleTemplate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

// statusFor maps roster error kinds to HTTP status codes.
func statusFor(err error) int {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrNotFound), errors.Is(err, roster.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, roster.ErrDuplicateName),
		errors.Is(err, roster.ErrAlreadyRegistered),
		errors.Is(err, roster.ErrRoleTaken),
		errors.Is(err, roster.ErrNotRegistered),
		errors.Is(err, roster.ErrNotCurrentlyRegistered):
		return http.StatusConflict
	case errors.Is(err, roster.ErrUnknownRole),
		errors.Is(err, roster.ErrInvalidTimeFormat),
		errors.Is(err, roster.ErrInvalidFreeText),
		errors.Is(err, roster.ErrInvalidAmount),
		errors.Is(err, roster.ErrInvalidParticipant):
		return http.StatusBadRequest
	case errors.Is(err, roster.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeRosterError writes err as the user-facing sentence for its kind.
func writeRosterError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, code, roster.Message(err))
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
