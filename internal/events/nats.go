package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// subscriberBuffer is how many messages a subscription holds for a
	// slow reader before dropping.
	subscriberBuffer = 64

	// reconnectBuffer bounds what a publisher holds while disconnected.
	reconnectBuffer = 4 << 20

	drainTimeout = 2 * time.Second
)

// dial connects with the options every muster connection shares. role
// names the connection in NATS monitoring ("muster-serve", "muster-watch").
func dial(url, role string, opts []nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name("muster-" + role),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.ReconnectBufSize(reconnectBuffer),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes each notification on the subject named by its
// topic.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url. Publishes made while the connection is
// down are buffered and sent on reconnect.
func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, "serve", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := nats.NewMsg(topic)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", topic, err)
	}
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	return p.conn.PublishMsg(msg)
}

// Close flushes buffered notifications, waiting up to two seconds.
func (p *NATSPublisher) Close() error {
	_ = p.conn.FlushTimeout(drainTimeout)
	p.conn.Close()
	return nil
}

// NATSSubscriber reads notifications off the bus.
type NATSSubscriber struct {
	conn    *nats.Conn
	dropped atomic.Uint64
}

// NewNATSSubscriber connects to url. opts can add handlers such as
// nats.DisconnectErrHandler.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, "watch", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers messages matching any of patterns, or every muster
// topic when none are given, until ctx is done. A reader that falls more
// than subscriberBuffer messages behind loses the overflow; see Dropped.
func (s *NATSSubscriber) Subscribe(ctx context.Context, patterns ...string) (<-chan Message, error) {
	if len(patterns) == 0 {
		patterns = []string{"muster.>"}
	}
	out := make(chan Message, subscriberBuffer)

	var (
		mu     sync.Mutex
		closed bool
		subs   []*nats.Subscription
		once   sync.Once
	)
	teardown := func() {
		once.Do(func() {
			for _, sub := range subs {
				_ = sub.Unsubscribe()
			}
			mu.Lock()
			closed = true
			close(out)
			mu.Unlock()
		})
	}
	deliver := func(m *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- Message{Topic: m.Subject, Data: m.Data}:
		default:
			s.dropped.Add(1)
		}
	}

	for _, p := range patterns {
		sub, err := s.conn.Subscribe(p, deliver)
		if err != nil {
			teardown()
			return nil, fmt.Errorf("subscribing to %s: %w", p, err)
		}
		subs = append(subs, sub)
	}
	// The server must know about the interest before we return, or a
	// publish from another connection can race past it.
	if err := s.conn.Flush(); err != nil {
		teardown()
		return nil, fmt.Errorf("flushing subscriptions: %w", err)
	}

	go func() {
		<-ctx.Done()
		teardown()
	}()
	return out, nil
}

// Dropped counts messages discarded because a reader fell behind.
func (s *NATSSubscriber) Dropped() uint64 { return s.dropped.Load() }

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
