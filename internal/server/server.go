// Package server exposes the roster over HTTP (JSON + SSE) and serves gRPC
// health checks. Every successful mutation is journaled, published to the
// notification bus and fanned out to SSE clients; those side effects are
// best-effort and never fail the mutation itself.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/muster/internal/announce"
	"github.com/alfredjeanlab/muster/internal/calendar"
	"github.com/alfredjeanlab/muster/internal/events"
	"github.com/alfredjeanlab/muster/internal/journal"
	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/roster"
)

// sideEffectTimeout bounds the calendar call and other follow-up work that
// runs after a mutation has already committed.
const sideEffectTimeout = 30 * time.Second

// Server wires the roster to its announcement board, calendar, journal and
// notification bus.
type Server struct {
	roster    *roster.Roster
	board     *announce.Board
	journal   journal.Journal
	publisher events.Publisher
	calendar  calendar.Creator
	feed      *calendar.Feed
	scanner   *roster.Scanner
	fanout    *fanout
	keepalive time.Duration
	health    *health.Server

	channelAllowed func(channel string) bool
}

// Option configures a Server.
type Option func(*Server)

// WithCalendar sets where fulfilled events are booked.
func WithCalendar(c calendar.Creator) Option {
	return func(s *Server) {
		if c != nil {
			s.calendar = c
		}
	}
}

// WithFeed serves f at GET /v1/calendar.ics.
func WithFeed(f *calendar.Feed) Option {
	return func(s *Server) { s.feed = f }
}

// WithChannelFilter restricts which channels free-text messages are
// accepted from.
func WithChannelFilter(allowed func(channel string) bool) Option {
	return func(s *Server) {
		if allowed != nil {
			s.channelAllowed = allowed
		}
	}
}

// WithKeepalive sets how often idle notification streams get a comment
// line. Non-positive values keep the default.
func WithKeepalive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepalive = d
		}
	}
}

// WithReminderSchedule sets the cron schedule of the reminder scanner.
func WithReminderSchedule(schedule string) Option {
	return func(s *Server) {
		s.scanner = roster.NewScanner(s.roster, schedule, s.Remind, slog.Default())
	}
}

// New returns a Server over r. A nil journal or publisher is replaced with
// an in-memory journal and a publisher that only logs.
func New(r *roster.Roster, b *announce.Board, j journal.Journal, p events.Publisher, opts ...Option) *Server {
	if j == nil {
		j = journal.NewMemory()
	}
	if p == nil {
		p = &events.LogPublisher{}
	}
	s := &Server{
		roster:         r,
		board:          b,
		journal:        j,
		publisher:      p,
		calendar:       calendar.Noop{},
		fanout:         newFanout(),
		keepalive:      defaultKeepalive,
		health:         health.NewServer(),
		channelAllowed: func(string) bool { return true },
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.scanner = roster.NewScanner(r, roster.DefaultSchedule, s.Remind, slog.Default())
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins the reminder schedule and reports SERVING to health checks.
func (s *Server) Start() error {
	if err := s.scanner.Start(); err != nil {
		return err
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Stop halts the reminder schedule and flips health checks to NOT_SERVING.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.scanner.Stop()
}

// recordAndPublish journals a notification and publishes it to the bus and
// SSE clients. All three are best-effort; failures are logged.
func (s *Server) recordAndPublish(ctx context.Context, topic, eventName, actor string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Warn("failed to marshal notification", "topic", topic, "event", eventName, "error", err)
		return
	}
	if err := s.journal.Record(ctx, &model.Entry{
		Topic:     topic,
		EventName: eventName,
		Actor:     actor,
		Payload:   payload,
	}); err != nil {
		slog.Warn("failed to journal notification", "topic", topic, "event", eventName, "error", err)
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish notification", "topic", topic, "event", eventName, "error", err)
	}
	s.fanout.publish(topic, payload)
}

// announceCreated posts the announcement and its discussion thread and
// stores both refs on the event. Registrations that commit before the refs
// are stored cannot refresh the announcement themselves, so it is
// re-rendered from the event as of the ref update.
func (s *Server) announceCreated(ctx context.Context, e *model.Event) *model.Event {
	s.recordAndPublish(ctx, events.TopicEventCreated, e.Name, e.CreatedBy.String(), events.EventCreated{Event: e})

	msg, err := s.board.Announce(ctx, e)
	if err != nil {
		slog.Warn("failed to post announcement", "event", e.Name, "error", err)
		return e
	}
	refs := model.Refs{Announcement: msg.Ref}
	if thread, err := s.board.OpenThread(ctx, msg.Ref, e.Name+" Discussion"); err != nil {
		slog.Warn("failed to open discussion thread", "event", e.Name, "error", err)
	} else {
		refs.Thread = thread.Ref
	}

	updated, err := s.roster.SetRefs(ctx, e.Name, refs)
	if err != nil {
		slog.Warn("failed to store announcement refs", "event", e.Name, "error", err)
		return e
	}
	s.refreshAnnouncement(ctx, updated)
	return updated
}

// refreshAnnouncement re-renders the event's announcement after a change.
func (s *Server) refreshAnnouncement(ctx context.Context, e *model.Event) {
	if e.AnnouncementRef == "" {
		return
	}
	if err := s.board.Refresh(ctx, e.AnnouncementRef, e); err != nil {
		slog.Warn("failed to update announcement", "event", e.Name, "ref", e.AnnouncementRef, "error", err)
	}
}

// fulfill announces a fully staffed event and books it in the calendar.
// The returned event carries the calendar ref when booking succeeded.
func (s *Server) fulfill(ctx context.Context, e *model.Event, f *roster.Fulfillment) *model.Event {
	text := roster.FulfilledText(f)
	if _, err := s.board.Post(ctx, f.Channel, text); err != nil {
		slog.Warn("failed to post fulfillment", "event", f.EventName, "error", err)
	}
	s.recordAndPublish(ctx, events.TopicEventFulfilled, f.EventName, "", events.EventFulfilled{
		EventName:    f.EventName,
		Channel:      f.Channel,
		Participants: f.Participants,
		Text:         text,
	})

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	ref, err := s.calendar.CreateEvent(cctx, f.Calendar)
	if err != nil {
		slog.Warn("failed to create calendar event", "event", f.EventName, "error", err)
		return e
	}
	if ref == "" {
		return e
	}

	updated, err := s.roster.SetRefs(cctx, f.EventName, model.Refs{Calendar: ref})
	if err != nil {
		// The event may have started and been removed meanwhile.
		slog.Warn("failed to store calendar ref", "event", f.EventName, "error", err)
		updated = e
	}
	text = roster.CalendarText(ref)
	if _, err := s.board.Post(cctx, f.Channel, text); err != nil {
		slog.Warn("failed to post calendar link", "event", f.EventName, "error", err)
	}
	s.recordAndPublish(cctx, events.TopicCalendarCreated, f.EventName, "", events.CalendarCreated{
		EventName:   f.EventName,
		CalendarRef: ref,
		Text:        text,
	})
	return updated
}

// Remind delivers the start-time reminder for an event the scanner has
// just removed from the registry.
func (s *Server) Remind(ctx context.Context, e *model.Event) {
	text := roster.ReminderText(e)
	if _, err := s.board.Post(ctx, e.Channel, text); err != nil {
		slog.Warn("failed to post reminder", "event", e.Name, "error", err)
	}
	s.recordAndPublish(ctx, events.TopicEventReminder, e.Name, "", events.EventReminder{
		EventName:    e.Name,
		Channel:      e.Channel,
		Participants: e.Participants(),
		Text:         text,
	})
	s.recordAndPublish(ctx, events.TopicEventRemoved, e.Name, "", events.EventRemoved{
		EventName: e.Name,
		Reason:    "started",
	})
}
