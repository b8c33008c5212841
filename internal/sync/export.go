package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/store"
)

// snapshotVersion changes when the record layout does.
const snapshotVersion = "1"

// summary opens every snapshot.
type summary struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"` // "header"
	Taken     time.Time `json:"timestamp"`
	Events    int       `json:"event_count"`
	Fulfilled int       `json:"filled_count"`
	OpenSlots int       `json:"open_slots"`
}

// line is one event in the snapshot.
type line struct {
	Type  string       `json:"type"` // "event"
	Event *model.Event `json:"data"`
}

// ExportJSONL writes the live events as JSONL: a summary line stamped with
// at, then one line per event in the store's order (scheduled time, then
// name).
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer, at time.Time) error {
	evs, err := s.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	sum := summary{Version: snapshotVersion, Type: "header", Taken: at.UTC(), Events: len(evs)}
	for _, e := range evs {
		if e.Fulfilled {
			sum.Fulfilled++
		}
		for _, slot := range e.Slots {
			if slot.Participant.IsZero() {
				sum.OpenSlots++
			}
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	for _, e := range evs {
		if err := enc.Encode(line{Type: "event", Event: e}); err != nil {
			return fmt.Errorf("encode %s: %w", e.Name, err)
		}
	}
	return nil
}
