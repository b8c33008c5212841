package calendar

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/alfredjeanlab/muster/internal/roster"
)

// Feed collects booked events in memory and serves them as an iCalendar
// feed that calendar apps can subscribe to.
type Feed struct {
	mu      sync.Mutex
	name    string
	entries map[string]roster.CalendarRequest
	now     func() time.Time
}

// NewFeed returns an empty feed published under name.
func NewFeed(name string) *Feed {
	return &Feed{name: name, entries: make(map[string]roster.CalendarRequest), now: time.Now}
}

// CreateEvent adds req to the feed and returns its UID.
func (f *Feed) CreateEvent(_ context.Context, req roster.CalendarRequest) (string, error) {
	uid := NewUID()
	f.mu.Lock()
	f.entries[uid] = req
	f.mu.Unlock()
	return uid, nil
}

// Len returns the number of booked events.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// WriteTo encodes the feed as text/calendar.
func (f *Feed) WriteTo(w io.Writer) (int64, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	if f.name != "" {
		cal.SetName(f.name)
		cal.SetXWRCalName(f.name)
	}

	f.mu.Lock()
	uids := make([]string, 0, len(f.entries))
	for uid := range f.entries {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool {
		a, b := f.entries[uids[i]], f.entries[uids[j]]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return uids[i] < uids[j]
	})
	stamp := f.now().UTC()
	for _, uid := range uids {
		req := f.entries[uid]
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(req.Start.UTC())
		ev.SetEndAt(req.End.UTC())
		ev.SetSummary(req.Summary)
		if req.Description != "" {
			ev.SetDescription(req.Description)
		}
		if req.Location != "" {
			ev.SetLocation(req.Location)
		}
	}
	f.mu.Unlock()

	cw := &countingWriter{w: w}
	err := cal.SerializeTo(cw)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
