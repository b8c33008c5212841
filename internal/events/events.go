// Package events defines muster's notification topics and payloads and the
// buses that carry them.
package events

import (
	"context"

	"github.com/alfredjeanlab/muster/internal/model"
)

// Topics. The second token groups them for wildcard subscriptions.
const (
	TopicEventCreated      = "muster.event.created"
	TopicEventRegistered   = "muster.event.registered"
	TopicEventUnregistered = "muster.event.unregistered"
	TopicEventSwitched     = "muster.event.switched"
	TopicEventFulfilled    = "muster.event.fulfilled"
	TopicEventReminder     = "muster.event.reminder"
	TopicEventRemoved      = "muster.event.removed"

	TopicCalendarCreated = "muster.calendar.created"

	TopicAnnouncementCleared = "muster.announcement.cleared"
)

// Notification payloads. Text is the human-readable rendering the
// transport may show as-is.

type EventCreated struct {
	Event *model.Event `json:"event"`
}

type Registered struct {
	Event       *model.Event        `json:"event"`
	Participant model.ParticipantID `json:"participant"`
	Role        string              `json:"role"`
}

type Unregistered struct {
	Event       *model.Event        `json:"event"`
	Participant model.ParticipantID `json:"participant"`
	Role        string              `json:"role"`
	Text        string              `json:"text"`
}

type RoleSwitched struct {
	Event       *model.Event        `json:"event"`
	Participant model.ParticipantID `json:"participant"`
	From        string              `json:"from"`
	To          string              `json:"to"`
}

type EventFulfilled struct {
	EventName    string                `json:"event_name"`
	Channel      string                `json:"channel,omitempty"`
	Participants []model.ParticipantID `json:"participants"`
	Text         string                `json:"text"`
}

type EventReminder struct {
	EventName    string                `json:"event_name"`
	Channel      string                `json:"channel,omitempty"`
	Participants []model.ParticipantID `json:"participants"`
	Text         string                `json:"text"`
}

type EventRemoved struct {
	EventName string `json:"event_name"`
	Reason    string `json:"reason"`
}

type CalendarCreated struct {
	EventName   string `json:"event_name"`
	CalendarRef string `json:"calendar_ref"`
	Text        string `json:"text"`
}

type AnnouncementCleared struct {
	Channel string              `json:"channel"`
	Actor   model.ParticipantID `json:"actor"`
	Count   int                 `json:"count"`
}

// Publisher emits notifications. Payloads are JSON-encoded.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Message is one notification taken off the bus.
type Message struct {
	Topic string
	Data  []byte
}

// Subscriber receives notifications. Patterns use NATS wildcards
// ("muster.event.*", "muster.>"). The channel closes when ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns ...string) (<-chan Message, error)
	Close() error
}
