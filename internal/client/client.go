// Package client provides the interface the muster CLI uses to talk to a
// running server, and an HTTP/JSON implementation of it.
package client

import (
	"context"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
)

// MusterClient is implemented by HTTPClient.
type MusterClient interface {
	// Creation
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*Result, error)
	SubmitForm(ctx context.Context, req *FormRequest) (*Result, error)
	SendMessage(ctx context.Context, req *MessageRequest) (*Result, error)

	// Registry
	GetEvent(ctx context.Context, name string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	ListTemplates(ctx context.Context) ([]model.RoleTemplate, error)

	// Registration
	Register(ctx context.Context, event, participant, role string) (*Result, error)
	Unregister(ctx context.Context, event, participant, role string) (*Result, error)
	SwitchRole(ctx context.Context, event, participant, role string) (*Result, error)

	// Journal and board
	GetJournal(ctx context.Context, event string) ([]*model.Entry, error)
	GetAnnouncement(ctx context.Context, ref string) (*Message, error)
	ListChannel(ctx context.Context, channel string) ([]*Message, error)
	ClearChannel(ctx context.Context, channel string, req *ClearRequest) (*ClearResponse, error)

	// Scanner
	Tick(ctx context.Context, at *time.Time) ([]string, error)

	// Notifications
	Stream(ctx context.Context, topics []string, fn func(Notification) error) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateEventRequest holds parameters for the structured create command.
type CreateEventRequest struct {
	Name        string `json:"name"`
	Template    string `json:"template,omitempty"`
	Date        string `json:"date,omitempty"` // DD/MM/YYYY
	Time        string `json:"time"`           // HH:MM
	MountType   string `json:"mount_type,omitempty"`
	Description string `json:"description,omitempty"`
	Channel     string `json:"channel,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// FormRequest holds the fields of the creation form.
type FormRequest struct {
	Template    string `json:"template"`
	Time        string `json:"time"`
	MountType   string `json:"mount_type,omitempty"`
	Description string `json:"description,omitempty"`
	Channel     string `json:"channel,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
}

// MessageRequest is a raw chat message.
type MessageRequest struct {
	Channel string `json:"channel"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// Result is the server's reply to a mutation. Ignored is set when a chat
// message was not a create command or came from a channel the server does
// not listen to.
type Result struct {
	Event     *model.Event `json:"event,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fulfilled bool         `json:"fulfilled,omitempty"`
	Ignored   bool         `json:"-"`
}

// Message is a post on the announcement board.
type Message struct {
	Ref       string    `json:"ref"`
	Channel   string    `json:"channel"`
	Kind      string    `json:"kind"`
	Event     string    `json:"event,omitempty"`
	Title     string    `json:"title,omitempty"`
	Body      string    `json:"body"`
	ParentRef string    `json:"parent_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearRequest holds parameters for clearing a channel.
type ClearRequest struct {
	Amount      int      `json:"amount"`
	Actor       string   `json:"actor,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ClearResponse is the response from ClearChannel.
type ClearResponse struct {
	Count int    `json:"count"`
	Text  string `json:"text"`
}

// Notification is one message from the server's notification stream.
type Notification struct {
	ID    string
	Topic string
	Data  []byte
}
