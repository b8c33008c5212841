package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/muster/internal/announce"
	"github.com/alfredjeanlab/muster/internal/events"
	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/roster"
)

// PermissionManageMessages allows clearing a channel.
const PermissionManageMessages = "manage_messages"

type clearInput struct {
	Amount      int      `json:"amount"`
	Actor       string   `json:"actor"`
	Permissions []string `json:"permissions"`
}

type tickInput struct {
	Now *time.Time `json:"now,omitempty"`
}

// handleGetAnnouncement handles GET /v1/announcements/{ref}.
func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	m, err := s.board.Get(r.PathValue("ref"))
	if errors.Is(err, announce.ErrNotFound) {
		writeError(w, http.StatusNotFound, "announcement not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get announcement")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleListChannel handles GET /v1/channels/{channel}/messages.
func (s *Server) handleListChannel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.board.List(r.PathValue("channel"))})
}

// handleClearChannel handles POST /v1/channels/{channel}/clear. The caller
// must hold the manage_messages permission.
func (s *Server) handleClearChannel(w http.ResponseWriter, r *http.Request) {
	var in clearInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !hasPermission(in.Permissions, PermissionManageMessages) {
		writeRosterError(w, r, &roster.Error{Kind: roster.ErrForbidden})
		return
	}
	if in.Amount <= 0 {
		writeRosterError(w, r, &roster.Error{Kind: roster.ErrInvalidAmount})
		return
	}

	channel := r.PathValue("channel")
	n, err := s.board.Clear(r.Context(), channel, in.Amount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear channel")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicAnnouncementCleared, "", in.Actor, events.AnnouncementCleared{
		Channel: channel,
		Actor:   model.ParticipantID(in.Actor),
		Count:   n,
	})
	writeJSON(w, http.StatusOK, map[string]any{"count": n, "text": roster.ClearedText(n)})
}

func hasPermission(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

// handleScannerTick handles POST /v1/scanner/tick: one reminder scan at the
// given instant (now when the body is empty).
func (s *Server) handleScannerTick(w http.ResponseWriter, r *http.Request) {
	var in tickInput
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &in) {
			return
		}
	}
	now := time.Now()
	if in.Now != nil {
		now = *in.Now
	}

	due, err := s.scanner.Tick(r.Context(), now)
	if err != nil {
		slog.Error("reminder scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reminder scan failed")
		return
	}
	names := make([]string, 0, len(due))
	for _, e := range due {
		names = append(names, e.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminded": names})
}

// handleCalendarFeed handles GET /v1/calendar.ics.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, _ *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusNotFound, "calendar feed not enabled")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := s.feed.WriteTo(w); err != nil {
		slog.Warn("failed to write calendar feed", "error", err)
	}
}
