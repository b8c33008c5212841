package model

import (
	"encoding/json"
	"time"
)

// Entry is a journaled notification record, mirroring what is published to NATS.
type Entry struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	EventName string          `json:"event_name"`
	Actor     string          `json:"actor,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
