// Package journal keeps an append-only record of every notification the
// server emits, so the history of an event can be inspected after the
// fact (and after the event itself has been removed).
package journal

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
)

// Journal records notifications.
type Journal interface {
	// Record appends e, assigning ID and CreatedAt.
	Record(ctx context.Context, e *model.Entry) error
	// Entries returns the entries for an event, oldest first.
	Entries(ctx context.Context, eventName string) ([]*model.Entry, error)
	Close() error
}

// Memory is an in-process Journal.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	entries []*model.Entry
}

// NewMemory returns an empty journal.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

func (m *Memory) Record(_ context.Context, e *model.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID
	m.nextID++
	e.CreatedAt = time.Now().UTC()
	c := *e
	m.entries = append(m.entries, &c)
	return nil
}

func (m *Memory) Entries(_ context.Context, eventName string) ([]*model.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Entry
	for _, e := range m.entries {
		if strings.EqualFold(e.EventName, eventName) {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
