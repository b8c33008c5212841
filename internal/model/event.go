package model

import (
	"strings"
	"time"
)

// ParticipantID is an opaque, comparable identity for a participant.
// The transport decides its format (e.g. a chat user ID); the roster only
// compares values for equality. The zero value means "nobody".
type ParticipantID string

// String returns the string representation of the participant ID.
func (p ParticipantID) String() string {
	return string(p)
}

// IsZero reports whether the ID is empty.
func (p ParticipantID) IsZero() bool {
	return p == ""
}

// Slot is a single role position in an event.
type Slot struct {
	Role        string        `json:"role"`
	Participant ParticipantID `json:"participant,omitempty"` // empty = open
}

// Open reports whether nobody occupies the slot.
func (s Slot) Open() bool {
	return s.Participant.IsZero()
}

// Event is a scheduled group activity with a fixed set of role slots.
type Event struct {
	Name        string    `json:"name"`
	Template    string    `json:"template"`
	Slots       []Slot    `json:"slots"`
	ScheduledAt time.Time `json:"scheduled_at"` // always UTC
	MountType   string    `json:"mount_type,omitempty"`
	Description string    `json:"description,omitempty"`

	// Channel is the transport location the event was created in. It is
	// passed back as the calendar location and used for reminders.
	Channel string `json:"channel,omitempty"`

	// Opaque transport handles; never interpreted.
	AnnouncementRef string `json:"announcement_ref,omitempty"`
	ThreadRef       string `json:"thread_ref,omitempty"`
	CalendarRef     string `json:"calendar_ref,omitempty"`

	// Fulfilled is set once, on the first transition to all slots filled.
	Fulfilled bool `json:"fulfilled"`

	// Revision starts at 1 and grows with every committed update, so
	// snapshots of the same event can be ordered.
	Revision uint64 `json:"revision"`

	CreatedAt time.Time     `json:"created_at"`
	CreatedBy ParticipantID `json:"created_by,omitempty"`
}

// Refs groups the opaque transport handles of an event.
type Refs struct {
	Announcement string `json:"announcement_ref,omitempty"`
	Thread       string `json:"thread_ref,omitempty"`
	Calendar     string `json:"calendar_ref,omitempty"`
}

// NewEvent returns an event with one open slot per role, in template order.
func NewEvent(name string, tmpl *RoleTemplate, at time.Time) *Event {
	slots := make([]Slot, len(tmpl.Roles))
	for i, r := range tmpl.Roles {
		slots[i] = Slot{Role: r}
	}
	return &Event{
		Name:        name,
		Template:    tmpl.Name,
		Slots:       slots,
		ScheduledAt: at.UTC(),
		Revision:    1,
	}
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Slots = make([]Slot, len(e.Slots))
	copy(c.Slots, e.Slots)
	return &c
}

// SlotIndex returns the index of the slot for role, or -1. Role labels
// match case-insensitively so chat input like "tank" finds "Tank".
func (e *Event) SlotIndex(role string) int {
	for i, s := range e.Slots {
		if s.Role == role {
			return i
		}
	}
	for i, s := range e.Slots {
		if strings.EqualFold(s.Role, role) {
			return i
		}
	}
	return -1
}

// RoleOf returns the role occupied by p, or "" when p holds no role.
func (e *Event) RoleOf(p ParticipantID) string {
	if p.IsZero() {
		return ""
	}
	for _, s := range e.Slots {
		if s.Participant == p {
			return s.Role
		}
	}
	return ""
}

// AllFilled reports whether every slot is occupied.
func (e *Event) AllFilled() bool {
	for _, s := range e.Slots {
		if s.Open() {
			return false
		}
	}
	return true
}

// Participants returns the occupants of all filled slots, in slot order.
func (e *Event) Participants() []ParticipantID {
	var out []ParticipantID
	for _, s := range e.Slots {
		if !s.Open() {
			out = append(out, s.Participant)
		}
	}
	return out
}

// OpenRoles returns the roles nobody holds yet, in slot order.
func (e *Event) OpenRoles() []string {
	var out []string
	for _, s := range e.Slots {
		if s.Open() {
			out = append(out, s.Role)
		}
	}
	return out
}
