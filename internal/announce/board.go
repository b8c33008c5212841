// Package announce keeps the per-channel message board that event
// announcements, their discussion threads and notices are posted to.
package announce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/muster/internal/idgen"
	"github.com/alfredjeanlab/muster/internal/model"
)

// ErrNotFound is returned for an unknown message ref.
var ErrNotFound = errors.New("message not found")

// Kind classifies a board message.
type Kind string

const (
	KindAnnouncement Kind = "announcement"
	KindThread       Kind = "thread"
	KindNotice       Kind = "notice"
)

// Message is one post on the board. Threads are messages too; posts inside
// a thread use the thread's ref as their channel.
type Message struct {
	Ref       string    `json:"ref"`
	Channel   string    `json:"channel"`
	Kind      Kind      `json:"kind"`
	Event     string    `json:"event,omitempty"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body"`
	ParentRef string    `json:"parent_ref,omitempty"`
	Revision  uint64    `json:"revision,omitempty"` // event revision an announcement shows
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Board is an in-memory, concurrency-safe message board.
type Board struct {
	mu        sync.Mutex
	messages  map[string]*Message
	byChannel map[string][]string // refs, oldest first
	location  *time.Location
	now       func() time.Time
}

// NewBoard returns an empty board that renders times in loc (UTC if nil).
func NewBoard(loc *time.Location) *Board {
	if loc == nil {
		loc = time.UTC
	}
	return &Board{
		messages:  make(map[string]*Message),
		byChannel: make(map[string][]string),
		location:  loc,
		now:       time.Now,
	}
}

// Announce posts the rendered event to its channel.
func (b *Board) Announce(_ context.Context, e *model.Event) (*Message, error) {
	ref, err := idgen.New(idgen.Announcement)
	if err != nil {
		return nil, err
	}
	return b.add(&Message{
		Ref:      ref,
		Channel:  e.Channel,
		Kind:     KindAnnouncement,
		Event:    e.Name,
		Title:    "Event: **" + e.Name + "**",
		Body:     Render(e, b.location),
		Revision: e.Revision,
	}), nil
}

// Refresh re-renders an announcement after the event changed. A snapshot
// older than the one already shown is ignored, so concurrent refreshes
// settle on the newest state whatever order they arrive in.
func (b *Board) Refresh(_ context.Context, ref string, e *model.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[ref]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	if e.Revision < m.Revision {
		return nil
	}
	m.Revision = e.Revision
	m.Body = Render(e, b.location)
	m.UpdatedAt = b.now().UTC()
	return nil
}

// OpenThread starts a discussion thread under parentRef.
func (b *Board) OpenThread(_ context.Context, parentRef, title string) (*Message, error) {
	b.mu.Lock()
	parent, ok := b.messages[parentRef]
	var channel, event string
	if ok {
		channel, event = parent.Channel, parent.Event
	}
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, parentRef)
	}

	ref, err := idgen.New(idgen.Thread)
	if err != nil {
		return nil, err
	}
	return b.add(&Message{
		Ref:       ref,
		Channel:   channel,
		Kind:      KindThread,
		Event:     event,
		Title:     title,
		ParentRef: parentRef,
	}), nil
}

// Post adds a plain notice to channel.
func (b *Board) Post(_ context.Context, channel, text string) (*Message, error) {
	ref, err := idgen.New(idgen.Message)
	if err != nil {
		return nil, err
	}
	return b.add(&Message{Ref: ref, Channel: channel, Kind: KindNotice, Body: text}), nil
}

// Get returns a copy of the message with the given ref.
func (b *Board) Get(ref string) (*Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.messages[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	c := *m
	return &c, nil
}

// List returns copies of the messages in channel, oldest first.
func (b *Board) List(channel string) []*Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	refs := b.byChannel[channel]
	out := make([]*Message, 0, len(refs))
	for _, ref := range refs {
		c := *b.messages[ref]
		out = append(out, &c)
	}
	return out
}

// Clear deletes the newest n messages in channel and returns how many were
// deleted.
func (b *Board) Clear(_ context.Context, channel string, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("clear: amount must be positive, got %d", n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	refs := b.byChannel[channel]
	if n > len(refs) {
		n = len(refs)
	}
	for _, ref := range refs[len(refs)-n:] {
		delete(b.messages, ref)
	}
	if rest := refs[:len(refs)-n]; len(rest) > 0 {
		b.byChannel[channel] = rest
	} else {
		delete(b.byChannel, channel)
	}
	return n, nil
}

func (b *Board) add(m *Message) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.CreatedAt = b.now().UTC()
	m.UpdatedAt = m.CreatedAt
	b.messages[m.Ref] = m
	b.byChannel[m.Channel] = append(b.byChannel[m.Channel], m.Ref)
	c := *m
	return &c
}

// Render formats an event for its announcement: details followed by one
// line per role showing the holder or "Available".
func Render(e *model.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	if e.Description != "" {
		sb.WriteString(e.Description)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "**Start Time:** %s\n", e.ScheduledAt.In(loc).Format("02/01/2006 15:04 MST"))
	if e.MountType != "" {
		fmt.Fprintf(&sb, "**Mount Type:** %s\n", e.MountType)
	}
	sb.WriteString("\n**Roles**\n")
	for _, s := range e.Slots {
		holder := "Available"
		if !s.Open() {
			holder = s.Participant.String()
		}
		fmt.Fprintf(&sb, "**%s:** %s\n", s.Role, holder)
	}
	return strings.TrimRight(sb.String(), "\n")
}
