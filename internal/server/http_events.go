package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/muster/internal/events"
	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/roster"
)

type createEventInput struct {
	Name        string `json:"name"`
	Template    string `json:"template"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	MountType   string `json:"mount_type"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	CreatedBy   string `json:"created_by"`
}

type formInput struct {
	Template    string `json:"template"`
	Time        string `json:"time"`
	MountType   string `json:"mount_type"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	CreatedBy   string `json:"created_by"`
}

type messageInput struct {
	Channel string `json:"channel"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

type registrationInput struct {
	Participant string `json:"participant"`
	Role        string `json:"role"`
}

// eventResponse is returned by every successful mutation. Text is the
// confirmation shown to the requester.
type eventResponse struct {
	Event     *model.Event `json:"event"`
	Text      string       `json:"text"`
	Fulfilled bool         `json:"fulfilled,omitempty"`
}

// handleCreateEvent handles POST /v1/events.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in createEventInput
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	e, err := s.roster.Create(r.Context(), roster.CreateRequest{
		Name:        in.Name,
		Template:    in.Template,
		Date:        in.Date,
		Clock:       in.Time,
		MountType:   in.MountType,
		Description: in.Description,
		Channel:     in.Channel,
		CreatedBy:   model.ParticipantID(in.CreatedBy),
	})
	if err != nil {
		writeRosterError(w, r, err)
		return
	}
	s.writeCreated(w, r, e)
}

// handleCreateFromForm handles POST /v1/events/form.
func (s *Server) handleCreateFromForm(w http.ResponseWriter, r *http.Request) {
	var in formInput
	if !decodeBody(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Template) == "" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}

	e, err := s.roster.CreateFromForm(r.Context(), roster.FormRequest{
		Template:    in.Template,
		Clock:       in.Time,
		MountType:   in.MountType,
		Description: in.Description,
		Channel:     in.Channel,
		CreatedBy:   model.ParticipantID(in.CreatedBy),
	})
	if err != nil {
		writeRosterError(w, r, err)
		return
	}
	s.writeCreated(w, r, e)
}

// handleMessage handles POST /v1/messages: a chat message that may be a
// free-text create command. Messages from channels outside the allow-list,
// and messages that are not create commands, are accepted and ignored.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var in messageInput
	if !decodeBody(w, r, &in) {
		return
	}
	if !s.channelAllowed(in.Channel) || !roster.IsCreateMessage(in.Content) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ignored"})
		return
	}

	e, err := s.roster.CreateFromMessage(r.Context(), in.Content, in.Channel, model.ParticipantID(in.Author))
	if err != nil {
		writeRosterError(w, r, err)
		return
	}
	s.writeCreated(w, r, e)
}

func (s *Server) writeCreated(w http.ResponseWriter, r *http.Request, e *model.Event) {
	e = s.announceCreated(r.Context(), e)
	writeJSON(w, http.StatusCreated, eventResponse{Event: e, Text: roster.CreatedText(e)})
}

// handleListEvents handles GET /v1/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := s.roster.List(r.Context())
	if err != nil {
		writeRosterError(w, r, err)
		return
	}
	if list == nil {
		list = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

// handleGetEvent handles GET /v1/events/{name}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.roster.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		writeRosterError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleGetJournal handles GET /v1/events/{name}/journal. Entries outlive
// the event, so a removed event still has a journal.
func (s *Server) handleGetJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.journal.Entries(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func decodeRegistration(w http.ResponseWriter, r *http.Request) (registrationInput, bool) {
	var in registrationInput
	if !decodeBody(w, r, &in) {
		return in, false
	}
	if strings.TrimSpace(in.Participant) == "" {
		writeError(w, http.StatusBadRequest, "participant is required")
		return in, false
	}
	if strings.TrimSpace(in.Role) == "" {
		writeError(w, http.StatusBadRequest, "role is required")
		return in, false
	}
	return in, true
}

// handleRegister handles POST /v1/events/{name}/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRegistration(w, r)
	if !ok {
		return
	}
	out, err := s.roster.Register(r.Context(), r.PathValue("name"), model.ParticipantID(in.Participant), in.Role)
	if err != nil {
		writeRosterError(w, r, err)
		return
	}

	s.recordAndPublish(r.Context(), events.TopicEventRegistered, out.Event.Name, in.Participant, events.Registered{
		Event:       out.Event,
		Participant: out.Participant,
		Role:        out.Role,
	})
	s.writeOutcome(w, r, out, roster.RegisteredText(out))
}

// handleUnregister handles POST /v1/events/{name}/unregister.
func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRegistration(w, r)
	if !ok {
		return
	}
	out, err := s.roster.Unregister(r.Context(), r.PathValue("name"), model.ParticipantID(in.Participant), in.Role)
	if err != nil {
		writeRosterError(w, r, err)
		return
	}

	notice := roster.UnregisteredNotice(out)
	if _, err := s.board.Post(r.Context(), out.Event.Channel, notice); err != nil {
		slog.Warn("failed to post unregister notice", "event", out.Event.Name, "error", err)
	}
	s.recordAndPublish(r.Context(), events.TopicEventUnregistered, out.Event.Name, in.Participant, events.Unregistered{
		Event:       out.Event,
		Participant: out.Participant,
		Role:        out.Role,
		Text:        notice,
	})
	s.writeOutcome(w, r, out, roster.UnregisteredText(out))
}

// handleSwitchRole handles POST /v1/events/{name}/switch.
func (s *Server) handleSwitchRole(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeRegistration(w, r)
	if !ok {
		return
	}
	out, err := s.roster.SwitchRole(r.Context(), r.PathValue("name"), model.ParticipantID(in.Participant), in.Role)
	if err != nil {
		writeRosterError(w, r, err)
		return
	}

	s.recordAndPublish(r.Context(), events.TopicEventSwitched, out.Event.Name, in.Participant, events.RoleSwitched{
		Event:       out.Event,
		Participant: out.Participant,
		From:        out.From,
		To:          out.Role,
	})
	s.writeOutcome(w, r, out, roster.SwitchedText(out))
}

// writeOutcome refreshes the announcement, runs the fulfillment side
// effects when this change completed the roster, and writes the response.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out *roster.Outcome, text string) {
	e := out.Event
	s.refreshAnnouncement(r.Context(), e)
	if out.Fulfillment != nil {
		e = s.fulfill(r.Context(), e, out.Fulfillment)
	}
	writeJSON(w, http.StatusOK, eventResponse{Event: e, Text: text, Fulfilled: out.Fulfillment != nil})
}
