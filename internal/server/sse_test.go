package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/muster/internal/events"
)

func recv(t *testing.T, w *watcher) frame {
	t.Helper()
	select {
	case fr := <-w.frames:
		return fr
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return frame{}
	}
}

func expectQuiet(t *testing.T, w *watcher) {
	t.Helper()
	select {
	case fr := <-w.frames:
		t.Fatalf("unexpected frame %d on %q", fr.seq, fr.topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanout_Publish(t *testing.T) {
	f := newFanout()
	w, missed := f.watch(nil, 0, false)
	defer f.unwatch(w)
	if missed != nil {
		t.Fatalf("fresh watch replayed %d frames", len(missed))
	}

	f.publish(events.TopicEventCreated, []byte(`{"n":1}`))
	fr := recv(t, w)
	if fr.seq != 1 || fr.topic != events.TopicEventCreated || string(fr.data) != `{"n":1}` {
		t.Fatalf("got %+v", fr)
	}
	if next := f.publish(events.TopicEventRegistered, nil); next.seq != 2 {
		t.Fatalf("second seq = %d", next.seq)
	}
}

func TestFanout_Filter(t *testing.T) {
	f := newFanout()
	w, _ := f.watch(topicFilter{"muster.event.*", "muster.calendar.created"}, 0, false)
	defer f.unwatch(w)

	f.publish(events.TopicAnnouncementCleared, nil)
	f.publish(events.TopicCalendarCreated, nil)
	f.publish(events.TopicEventFulfilled, nil)

	if got := recv(t, w).topic; got != events.TopicCalendarCreated {
		t.Fatalf("first = %q", got)
	}
	if got := recv(t, w).topic; got != events.TopicEventFulfilled {
		t.Fatalf("second = %q", got)
	}
	expectQuiet(t, w)
}

func TestFanout_Unwatch(t *testing.T) {
	f := newFanout()
	w, _ := f.watch(nil, 0, false)
	f.unwatch(w)
	f.publish(events.TopicEventCreated, nil)
	expectQuiet(t, w)
}

func TestFanout_Resume(t *testing.T) {
	f := newFanout()
	f.publish(events.TopicEventCreated, []byte("1"))
	f.publish(events.TopicCalendarCreated, []byte("2"))
	f.publish(events.TopicEventRegistered, []byte("3"))

	tests := []struct {
		name    string
		filter  topicFilter
		lastSeq uint64
		want    []uint64
	}{
		{"AfterFirst", nil, 1, []uint64{2, 3}},
		{"FromStart", nil, 0, []uint64{1, 2, 3}},
		{"UpToDate", nil, 3, nil},
		{"AheadOfServer", nil, 99, nil},
		{"Filtered", topicFilter{"muster.event.>"}, 0, []uint64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, missed := f.watch(tt.filter, tt.lastSeq, true)
			defer f.unwatch(w)
			if len(missed) != len(tt.want) {
				t.Fatalf("missed %d frames, want %d", len(missed), len(tt.want))
			}
			for i, fr := range missed {
				if fr.seq != tt.want[i] {
					t.Errorf("missed[%d].seq = %d, want %d", i, fr.seq, tt.want[i])
				}
			}
		})
	}
}

func TestFanout_HistoryBound(t *testing.T) {
	f := newFanout()
	for range feedHistory + 40 {
		f.publish(events.TopicEventCreated, nil)
	}
	w, missed := f.watch(nil, 0, true)
	defer f.unwatch(w)
	if len(missed) != feedHistory {
		t.Fatalf("history = %d, want %d", len(missed), feedHistory)
	}
	if missed[0].seq != 41 {
		t.Fatalf("oldest seq = %d, want 41", missed[0].seq)
	}
}

func TestFanout_EvictsLaggingWatcher(t *testing.T) {
	f := newFanout()
	slow, _ := f.watch(nil, 0, false)
	other, _ := f.watch(topicFilter{"muster.calendar.*"}, 0, false)
	defer f.unwatch(other)

	for range watcherBacklog + 1 {
		f.publish(events.TopicEventRegistered, nil)
	}

	select {
	case <-slow.evicted:
	default:
		t.Fatal("lagging watcher was not evicted")
	}
	select {
	case <-other.evicted:
		t.Fatal("idle watcher was evicted")
	default:
	}
	f.unwatch(slow) // after eviction
}

func TestMatchSubject(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		subject string
		want    bool
	}{
		{"muster.event.created", "muster.event.created", true},
		{"muster.event.created", "muster.event.registered", false},
		{"muster.event.*", "muster.event.switched", true},
		{"muster.event.*", "muster.calendar.created", false},
		{"muster.event.*", "muster.event", false},
		{"muster.*", "muster.event.created", false},
		{"muster.>", "muster.event.created", true},
		{"muster.>", "muster", false},
		{">", "muster.event.created", true},
		{"other.>", "muster.event.created", false},
		{"*.*.*", "muster.event.created", true},
		{"*.*.*", "muster.event", false},
		{"muster.event", "muster.event.created", false},
	} {
		t.Run(tc.pattern+"_"+tc.subject, func(t *testing.T) {
			if got := matchSubject(tc.pattern, tc.subject); got != tc.want {
				t.Fatalf("matchSubject(%q, %q) = %v, want %v", tc.pattern, tc.subject, got, tc.want)
			}
		})
	}
}

func TestParseTopicFilter(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{" , ", 0},
		{"muster.event.*", 1},
		{"muster.event.created, muster.calendar.*,", 2},
	}
	for _, tt := range tests {
		if got := parseTopicFilter(tt.raw); len(got) != tt.want {
			t.Errorf("parseTopicFilter(%q) = %v, want %d patterns", tt.raw, got, tt.want)
		}
	}
}

// streamWhile opens a notification stream against srv, calls during once
// the watcher is registered, then closes the stream and returns the output.
func streamWhile(t *testing.T, srv *Server, handler http.Handler, path string, header http.Header, during func()) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()

	before := srv.watcherCount()
	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	deadline := time.Now().Add(time.Second)
	for srv.watcherCount() == before {
		if time.Now().After(deadline) {
			t.Fatal("stream never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if during != nil {
		during()
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done
	return rec
}

func (s *Server) watcherCount() int {
	s.fanout.mu.Lock()
	defer s.fanout.mu.Unlock()
	return len(s.fanout.watchers)
}

func TestNotificationStream_Headers(t *testing.T) {
	srv, _, handler := newTestServer()
	rec := streamWhile(t, srv, handler, "/v1/notifications/stream", nil, nil)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("Cache-Control = %q", cc)
	}
	if !strings.HasPrefix(rec.Body.String(), "retry:3000\n\n") {
		t.Fatalf("stream should open with a retry hint, got:\n%s", rec.Body.String())
	}
}

func TestNotificationStream_Frames(t *testing.T) {
	srv, _, handler := newTestServer()
	rec := streamWhile(t, srv, handler, "/v1/notifications/stream", nil, func() {
		srv.fanout.publish(events.TopicEventCreated, []byte(`{"event":{"name":"Raid1"}}`))
	})

	var id, topic, data string
	sc := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
	if id != "1" {
		t.Fatalf("id = %q, want 1", id)
	}
	if topic != events.TopicEventCreated {
		t.Fatalf("event = %q", topic)
	}
	if !json.Valid([]byte(data)) || data != `{"event":{"name":"Raid1"}}` {
		t.Fatalf("data = %q", data)
	}
}

func TestNotificationStream_TopicsQuery(t *testing.T) {
	srv, _, handler := newTestServer()
	rec := streamWhile(t, srv, handler, "/v1/notifications/stream?topics=muster.calendar.*", nil, func() {
		srv.fanout.publish(events.TopicEventCreated, []byte(`{}`))
		srv.fanout.publish(events.TopicCalendarCreated, []byte(`{}`))
	})

	body := rec.Body.String()
	if strings.Contains(body, events.TopicEventCreated) {
		t.Fatalf("event.created should be filtered out:\n%s", body)
	}
	if !strings.Contains(body, "event:"+events.TopicCalendarCreated) {
		t.Fatalf("calendar.created missing:\n%s", body)
	}
}

func TestNotificationStream_LastEventID(t *testing.T) {
	srv, _, handler := newTestServer()
	srv.fanout.publish(events.TopicEventCreated, []byte(`{"n":1}`))
	srv.fanout.publish(events.TopicEventRegistered, []byte(`{"n":2}`))
	srv.fanout.publish(events.TopicEventSwitched, []byte(`{"n":3}`))

	rec := streamWhile(t, srv, handler, "/v1/notifications/stream",
		http.Header{"Last-Event-Id": {"1"}}, func() {
			srv.fanout.publish(events.TopicEventFulfilled, []byte(`{"n":4}`))
		})

	body := rec.Body.String()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("frame 1 was already seen:\n%s", body)
	}
	i2 := strings.Index(body, `data:{"n":2}`)
	i3 := strings.Index(body, `data:{"n":3}`)
	i4 := strings.Index(body, `data:{"n":4}`)
	if i2 < 0 || i3 < 0 || i4 < 0 || !(i2 < i3 && i3 < i4) {
		t.Fatalf("want frames 2, 3, 4 in order:\n%s", body)
	}
}

func TestNotificationStream_BadLastEventIDIgnored(t *testing.T) {
	srv, _, handler := newTestServer()
	srv.fanout.publish(events.TopicEventCreated, []byte(`{"n":1}`))

	rec := streamWhile(t, srv, handler, "/v1/notifications/stream",
		http.Header{"Last-Event-Id": {"latest"}}, nil)
	if strings.Contains(rec.Body.String(), `{"n":1}`) {
		t.Fatalf("unparseable Last-Event-ID should not replay:\n%s", rec.Body.String())
	}
}

func TestNotificationStream_Keepalive(t *testing.T) {
	srv, _, handler := newTestServer(WithKeepalive(10 * time.Millisecond))
	rec := streamWhile(t, srv, handler, "/v1/notifications/stream", nil, nil)
	if !strings.Contains(rec.Body.String(), ":keepalive\n\n") {
		t.Fatalf("no keepalive comment:\n%s", rec.Body.String())
	}
}

func TestNotificationStream_FromMutation(t *testing.T) {
	srv, _, handler := newTestServer()
	rec := streamWhile(t, srv, handler, "/v1/notifications/stream", nil, func() {
		srv.recordAndPublish(context.Background(), events.TopicEventCreated, "Raid1",
			"alice", events.EventCreated{})
	})
	if !strings.Contains(rec.Body.String(), "event:"+events.TopicEventCreated) {
		t.Fatalf("recordAndPublish did not reach the stream:\n%s", rec.Body.String())
	}
}

func TestNotificationStream_Unregisters(t *testing.T) {
	srv, _, handler := newTestServer()
	streamWhile(t, srv, handler, "/v1/notifications/stream", nil, nil)
	if n := srv.watcherCount(); n != 0 {
		t.Fatalf("%d watchers left after the stream closed", n)
	}
}
