// Package memory implements store.Store in process memory. Nothing
// survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/store"
)

// MemoryStore is a mutex-guarded map of live events.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
}

// Compile-time check that MemoryStore implements store.Store.
var _ store.Store = (*MemoryStore)(nil)

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{events: make(map[string]*model.Event)}
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *MemoryStore) CreateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(event.Name)
	if _, ok := s.events[k]; ok {
		return fmt.Errorf("%w: %q", store.ErrExists, event.Name)
	}
	s.events[k] = event.Clone()
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, name string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, name)
	}
	return e.Clone(), nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]*model.Event, error) {
	s.mu.Lock()
	out := make([]*model.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Clone())
	}
	s.mu.Unlock()

	sortEvents(out)
	return out, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, name string, fn func(event *model.Event) error) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(name)
	cur, ok := s.events[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, name)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.Revision = cur.Revision + 1
	s.events[k] = next
	return next.Clone(), nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.events, key(name))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) TakeEvents(_ context.Context, fn func(event *model.Event) bool) ([]*model.Event, error) {
	s.mu.Lock()
	var taken []*model.Event
	for k, e := range s.events {
		if fn(e.Clone()) {
			taken = append(taken, e)
			delete(s.events, k)
		}
	}
	s.mu.Unlock()

	sortEvents(taken)
	return taken, nil
}

// Close is a no-op; the registry is discarded with the process.
func (s *MemoryStore) Close() error { return nil }

func sortEvents(events []*model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].ScheduledAt.Equal(events[j].ScheduledAt) {
			return events[i].ScheduledAt.Before(events[j].ScheduledAt)
		}
		return events[i].Name < events[j].Name
	})
}
