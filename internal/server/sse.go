package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// feedHistory is how many recent frames a reconnecting watcher can
	// resume from.
	feedHistory = 512

	// watcherBacklog is how far a watcher may lag before it is evicted.
	watcherBacklog = 32

	defaultKeepalive = 20 * time.Second

	// retryMillis is the reconnect delay advertised to EventSource clients.
	retryMillis = 3000
)

// frame is one notification on the SSE stream.
type frame struct {
	seq   uint64
	topic string
	data  []byte
}

func (f frame) writeTo(w io.Writer) error {
	_, err := fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", f.seq, f.topic, f.data)
	return err
}

// topicFilter is a list of NATS-style subject patterns. Empty admits all.
type topicFilter []string

func parseTopicFilter(raw string) topicFilter {
	var tf topicFilter
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			tf = append(tf, p)
		}
	}
	return tf
}

func (tf topicFilter) admits(topic string) bool {
	if len(tf) == 0 {
		return true
	}
	for _, p := range tf {
		if matchSubject(p, topic) {
			return true
		}
	}
	return false
}

// matchSubject reports whether subject matches pattern, where "*" stands
// for exactly one token and a trailing ">" for one or more.
func matchSubject(pattern, subject string) bool {
	for {
		pTok, pRest, pMore := strings.Cut(pattern, ".")
		if pTok == ">" {
			return subject != ""
		}
		sTok, sRest, sMore := strings.Cut(subject, ".")
		if subject == "" || (pTok != "*" && pTok != sTok) {
			return false
		}
		if !pMore || !sMore {
			return pMore == sMore
		}
		pattern, subject = pRest, sRest
	}
}

// watcher is one connected stream.
type watcher struct {
	filter  topicFilter
	frames  chan frame
	evicted chan struct{}
}

// fanout numbers notifications, keeps a short history of them and hands
// them to every watcher whose filter admits the topic.
type fanout struct {
	mu       sync.Mutex
	seq      uint64
	history  []frame // oldest first
	watchers map[*watcher]struct{}
}

func newFanout() *fanout {
	return &fanout{watchers: make(map[*watcher]struct{})}
}

// publish appends a frame to the history and offers it to the watchers.
// A watcher with a full backlog is evicted; its client reconnects and
// resumes from the history.
func (f *fanout) publish(topic string, data []byte) frame {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	fr := frame{seq: f.seq, topic: topic, data: data}
	if len(f.history) == feedHistory {
		f.history = f.history[1:]
	}
	f.history = append(f.history, fr)

	for w := range f.watchers {
		if !w.filter.admits(topic) {
			continue
		}
		select {
		case w.frames <- fr:
		default:
			delete(f.watchers, w)
			close(w.evicted)
			slog.Debug("evicted lagging stream watcher", "seq", fr.seq, "topic", topic)
		}
	}
	return fr
}

// watch registers a watcher. When resume is set it also returns the
// admitted frames after lastSeq that are still in the history, taken under
// the same lock so nothing is lost or repeated between replay and live
// delivery.
func (f *fanout) watch(filter topicFilter, lastSeq uint64, resume bool) (*watcher, []frame) {
	w := &watcher{
		filter:  filter,
		frames:  make(chan frame, watcherBacklog),
		evicted: make(chan struct{}),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchers[w] = struct{}{}
	if !resume {
		return w, nil
	}
	var missed []frame
	for _, fr := range f.since(lastSeq) {
		if filter.admits(fr.topic) {
			missed = append(missed, fr)
		}
	}
	return w, missed
}

func (f *fanout) unwatch(w *watcher) {
	f.mu.Lock()
	delete(f.watchers, w)
	f.mu.Unlock()
}

// since returns the history after seq. Callers hold f.mu.
func (f *fanout) since(seq uint64) []frame {
	i := len(f.history)
	for i > 0 && f.history[i-1].seq > seq {
		i--
	}
	return f.history[i:]
}

// handleNotificationStream handles GET /v1/notifications/stream.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var lastSeq uint64
	resume := false
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			lastSeq, resume = n, true
		}
	}
	wt, missed := s.fanout.watch(parseTopicFilter(r.URL.Query().Get("topics")), lastSeq, resume)
	defer s.fanout.unwatch(wt)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "retry:%d\n\n", retryMillis)
	for _, fr := range missed {
		if fr.writeTo(w) != nil {
			return
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-wt.evicted:
			return
		case fr := <-wt.frames:
			if fr.writeTo(w) != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}
