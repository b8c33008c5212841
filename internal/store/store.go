package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/muster/internal/model"
)

var (
	// ErrNotFound is returned when no live event has the requested name.
	ErrNotFound = errors.New("event not found")
	// ErrExists is returned by CreateEvent when the name is already taken.
	ErrExists = errors.New("event already exists")
)

// Store is the event registry. Implementations serialize all mutations:
// no two calls interleave, and values returned to callers are copies.
type Store interface {
	// CreateEvent adds a new event. Names are unique case-insensitively.
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, name string) (*model.Event, error)
	// ListEvents returns all live events ordered by scheduled time, then name.
	ListEvents(ctx context.Context) ([]*model.Event, error)

	// UpdateEvent runs fn on a copy of the named event and commits the copy
	// only if fn returns nil. The whole call is one atomic step, and a
	// commit advances the event's Revision by one.
	UpdateEvent(ctx context.Context, name string, fn func(event *model.Event) error) (*model.Event, error)

	// DeleteEvent removes the named event. Deleting a missing event is not an error.
	DeleteEvent(ctx context.Context, name string) error
	// TakeEvents atomically removes and returns every event matching fn.
	TakeEvents(ctx context.Context, fn func(event *model.Event) bool) ([]*model.Event, error)

	Close() error
}
