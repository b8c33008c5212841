package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/store/memory"
)

// countingSink remembers how often Put was called and the last snapshot.
type countingSink struct {
	puts atomic.Int64
	last atomic.Value // []byte
	err  error
}

func (s *countingSink) Put(_ context.Context, snapshot []byte) error {
	s.puts.Add(1)
	s.last.Store(append([]byte(nil), snapshot...))
	return s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func raid(name string, at time.Time) *model.Event {
	return model.NewEvent(name, &model.RoleTemplate{Name: "Raid", Roles: []string{"Tank", "Healer"}}, at)
}

var snapshotDay = time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

func seededStore(t *testing.T, names ...string) *memory.MemoryStore {
	t.Helper()
	s := memory.New()
	for i, name := range names {
		if err := s.CreateEvent(context.Background(), raid(name, snapshotDay.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func TestExporter_SkipsUnchanged(t *testing.T) {
	st := seededStore(t, "Raid1")
	sink := &countingSink{}
	x := NewExporter(st, time.Minute, quietLogger(), sink)
	x.now = func() time.Time { return snapshotDay }
	ctx := context.Background()

	steps := []struct {
		name       string
		mutate     func()
		wantUpload bool
	}{
		{"First", nil, true},
		{"Unchanged", nil, false},
		{"NewEvent", func() {
			if err := st.CreateEvent(ctx, raid("Raid2", snapshotDay.Add(time.Hour))); err != nil {
				t.Fatal(err)
			}
		}, true},
		{"UnchangedAgain", nil, false},
		{"NextDay", func() { x.now = func() time.Time { return snapshotDay.Add(24 * time.Hour) } }, true},
	}
	for _, step := range steps {
		if step.mutate != nil {
			step.mutate()
		}
		uploaded, err := x.Export(ctx)
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if uploaded != step.wantUpload {
			t.Fatalf("%s: uploaded = %v, want %v", step.name, uploaded, step.wantUpload)
		}
	}
	if got := sink.puts.Load(); got != 3 {
		t.Fatalf("puts = %d, want 3", got)
	}
	last, _ := sink.last.Load().([]byte)
	if lines := nonEmptyLines(string(last)); len(lines) != 3 {
		t.Fatalf("last snapshot has %d lines, want header + 2 events", len(lines))
	}
}

func TestExporter_FailingSink(t *testing.T) {
	bad := &countingSink{err: errors.New("bucket gone")}
	good := &countingSink{}
	x := NewExporter(seededStore(t, "Raid1"), time.Minute, quietLogger(), bad, good)

	uploaded, err := x.Export(context.Background())
	if !uploaded || err == nil {
		t.Fatalf("uploaded=%v err=%v, want an attempted upload with an error", uploaded, err)
	}
	if !strings.Contains(err.Error(), "sink 0: bucket gone") {
		t.Fatalf("error %q does not name the failing sink", err)
	}
	if bad.puts.Load() != 1 || good.puts.Load() != 1 {
		t.Fatalf("puts = %d/%d, want 1/1", bad.puts.Load(), good.puts.Load())
	}

	// A failed round is retried even though nothing changed.
	bad.err = nil
	if uploaded, err := x.Export(context.Background()); !uploaded || err != nil {
		t.Fatalf("retry: uploaded=%v err=%v", uploaded, err)
	}
}

func TestExporter_StartStop(t *testing.T) {
	st := seededStore(t, "Raid1")
	sink := &countingSink{}
	x := NewExporter(st, 20*time.Millisecond, quietLogger(), sink)
	x.Start()

	deadline := time.Now().Add(time.Second)
	for sink.puts.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no export after Start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := st.CreateEvent(context.Background(), raid("Raid2", snapshotDay)); err != nil {
		t.Fatal(err)
	}
	for sink.puts.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("change was never exported")
		}
		time.Sleep(5 * time.Millisecond)
	}
	x.Stop()

	settled := sink.puts.Load()
	time.Sleep(60 * time.Millisecond)
	if sink.puts.Load() != settled {
		t.Fatal("exports continued after Stop")
	}
}

func TestExporter_StopWithoutStart(t *testing.T) {
	NewExporter(memory.New(), time.Minute, quietLogger()).Stop()
}
