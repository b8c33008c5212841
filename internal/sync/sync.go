// Package sync uploads snapshots of the live event registry to object
// storage on an interval.
package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/muster/internal/store"
)

// Sink stores one JSONL snapshot.
type Sink interface {
	Put(ctx context.Context, snapshot []byte) error
}

// Exporter snapshots a store and hands the result to its sinks. A snapshot
// identical to the last one every sink accepted is not uploaded again the
// same UTC day.
type Exporter struct {
	store store.Store
	sinks []Sink
	every time.Duration
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	digest  [sha256.Size]byte
	lastDay string // UTC date of the last complete upload; "" = never

	stop context.CancelFunc
	done chan struct{}
}

func NewExporter(s store.Store, every time.Duration, logger *slog.Logger, sinks ...Sink) *Exporter {
	return &Exporter{
		store: s,
		sinks: sinks,
		every: every,
		log:   logger,
		now:   time.Now,
	}
}

// Start exports once right away and then every interval until Stop.
func (x *Exporter) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	x.stop = cancel
	x.done = make(chan struct{})

	go func() {
		defer close(x.done)
		tick := time.NewTicker(x.every)
		defer tick.Stop()
		for {
			if _, err := x.Export(ctx); err != nil && ctx.Err() == nil {
				x.log.Error("snapshot export failed", "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}
		}
	}()
}

// Stop ends the loop and waits for an export in flight.
func (x *Exporter) Stop() {
	if x.stop == nil {
		return
	}
	x.stop()
	<-x.done
}

// Export uploads the current snapshot to every sink and reports whether it
// tried. Every sink is attempted even when one fails; any failure means the
// next call uploads again.
func (x *Exporter) Export(ctx context.Context) (bool, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, x.store, &buf, x.now()); err != nil {
		return false, err
	}
	snapshot := buf.Bytes()
	sum := sha256.Sum256(records(snapshot))
	day := x.now().UTC().Format("2006-01-02")
	if day == x.lastDay && sum == x.digest {
		x.log.Debug("snapshot unchanged, upload skipped")
		return false, nil
	}

	var errs []error
	for i, s := range x.sinks {
		if err := s.Put(ctx, snapshot); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(i, s), err))
		}
	}
	if len(errs) > 0 {
		x.lastDay = ""
		return true, errors.Join(errs...)
	}
	x.digest, x.lastDay = sum, day
	x.log.Info("snapshot exported", "sinks", len(x.sinks), "bytes", len(snapshot))
	return true, nil
}

// records drops the header line, whose timestamp differs on every export.
func records(snapshot []byte) []byte {
	if i := bytes.IndexByte(snapshot, '\n'); i >= 0 {
		return snapshot[i+1:]
	}
	return snapshot
}

func sinkName(i int, s Sink) string {
	if str, ok := s.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("sink %d", i)
}
