// Package calendar books fulfilled events in an external calendar.
//
// Creator implementations receive the request built when an event's last
// open slot is filled and return an opaque reference (a link or UID) that
// is stored on the event and announced to participants.
package calendar

import (
	"context"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/muster/internal/roster"
)

// Creator creates a calendar entry for a fulfilled event.
type Creator interface {
	CreateEvent(ctx context.Context, req roster.CalendarRequest) (ref string, err error)
}

// Noop discards requests. It is used when no calendar is configured.
type Noop struct{}

func (Noop) CreateEvent(context.Context, roster.CalendarRequest) (string, error) { return "", nil }

// NewUID returns a globally unique iCalendar UID.
func NewUID() string {
	return uuid.New().String() + "@muster"
}

const productID = "-//muster//EN"
