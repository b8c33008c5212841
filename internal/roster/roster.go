// Package roster implements event creation, role registration and the
// one-shot fulfillment decision on top of a store.Store.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/muster/internal/catalog"
	"github.com/alfredjeanlab/muster/internal/model"
	"github.com/alfredjeanlab/muster/internal/store"
)

// DefaultDuration is the calendar length of an event.
const DefaultDuration = 2 * time.Hour

// Roster owns the registration state machine. All mutations go through
// store.UpdateEvent, so each operation is a single atomic step.
type Roster struct {
	store    store.Store
	catalog  *catalog.Catalog
	location *time.Location
	duration time.Duration
	now      func() time.Time
}

// Option configures a Roster.
type Option func(*Roster)

// WithLocation sets the zone user-supplied times are read in.
func WithLocation(loc *time.Location) Option {
	return func(r *Roster) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithDuration sets the calendar event length.
func WithDuration(d time.Duration) Option {
	return func(r *Roster) {
		if d > 0 {
			r.duration = d
		}
	}
}

// WithClock replaces time.Now; tests use it to pin "today".
func WithClock(now func() time.Time) Option {
	return func(r *Roster) { r.now = now }
}

// New returns a Roster over s using the templates in c.
func New(s store.Store, c *catalog.Catalog, opts ...Option) *Roster {
	r := &Roster{
		store:    s,
		catalog:  c,
		location: time.UTC,
		duration: DefaultDuration,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Catalog returns the template catalog.
func (r *Roster) Catalog() *catalog.Catalog { return r.catalog }

// CreateRequest is the input for Create.
type CreateRequest struct {
	Name        string
	Template    string // defaults to Name
	Date        string // DD/MM/YYYY; empty means the next occurrence of Clock
	Clock       string // HH:MM
	MountType   string
	Description string
	Channel     string
	CreatedBy   model.ParticipantID
}

// Create instantiates a template as a new event with every slot open.
func (r *Roster) Create(ctx context.Context, req CreateRequest) (*model.Event, error) {
	name := strings.TrimSpace(req.Name)
	tmplName := strings.TrimSpace(req.Template)
	if tmplName == "" {
		tmplName = name
	}
	tmpl, err := r.catalog.Lookup(tmplName)
	if err != nil {
		return nil, &Error{Kind: ErrTemplateNotFound, Event: name}
	}

	at, err := ParseSchedule(req.Date, req.Clock, r.location, r.now())
	if err != nil {
		return nil, err
	}

	e := model.NewEvent(name, tmpl, at)
	e.MountType = strings.TrimSpace(req.MountType)
	e.Description = strings.TrimSpace(req.Description)
	e.Channel = req.Channel
	e.CreatedBy = req.CreatedBy
	e.CreatedAt = r.now().UTC()
	if err := model.ValidateEvent(e); err != nil {
		return nil, err
	}

	if err := r.store.CreateEvent(ctx, e); err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, &Error{Kind: ErrDuplicateName, Event: name}
		}
		return nil, fmt.Errorf("creating event %q: %w", name, err)
	}
	return e.Clone(), nil
}

// FormRequest is the input of the modal form: clock-only time and an
// optional description.
type FormRequest struct {
	Template    string
	Clock       string
	MountType   string
	Description string
	Channel     string
	CreatedBy   model.ParticipantID
}

// CreateFromForm creates an event named after its template.
func (r *Roster) CreateFromForm(ctx context.Context, req FormRequest) (*model.Event, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = DefaultDescription
	}
	return r.Create(ctx, CreateRequest{
		Name:        req.Template,
		Template:    req.Template,
		Clock:       req.Clock,
		MountType:   req.MountType,
		Description: desc,
		Channel:     req.Channel,
		CreatedBy:   req.CreatedBy,
	})
}

// CreateFromMessage parses a "create event ..." chat message and creates
// the event it describes. On a parse failure nothing is created.
func (r *Roster) CreateFromMessage(ctx context.Context, content, channel string, author model.ParticipantID) (*model.Event, error) {
	ft, err := ParseFreeText(content)
	if err != nil {
		return nil, err
	}
	return r.Create(ctx, CreateRequest{
		Name:        ft.Name,
		Clock:       ft.Clock,
		MountType:   ft.MountType,
		Description: ft.Description,
		Channel:     channel,
		CreatedBy:   author,
	})
}

// Get returns a snapshot of the named event.
func (r *Roster) Get(ctx context.Context, name string) (*model.Event, error) {
	e, err := r.store.GetEvent(ctx, name)
	if err != nil {
		return nil, r.mapStoreErr(name, err)
	}
	return e, nil
}

// List returns snapshots of every live event.
func (r *Roster) List(ctx context.Context) ([]*model.Event, error) {
	return r.store.ListEvents(ctx)
}

// Remove deletes the named event. Removing a missing event is a no-op.
func (r *Roster) Remove(ctx context.Context, name string) error {
	return r.store.DeleteEvent(ctx, name)
}

// SetRefs records transport handles on an event. Empty values leave the
// current handle unchanged.
func (r *Roster) SetRefs(ctx context.Context, name string, refs model.Refs) (*model.Event, error) {
	e, err := r.store.UpdateEvent(ctx, name, func(e *model.Event) error {
		if refs.Announcement != "" {
			e.AnnouncementRef = refs.Announcement
		}
		if refs.Thread != "" {
			e.ThreadRef = refs.Thread
		}
		if refs.Calendar != "" {
			e.CalendarRef = refs.Calendar
		}
		return nil
	})
	if err != nil {
		return nil, r.mapStoreErr(name, err)
	}
	return e, nil
}

// Outcome describes a successful registration change.
type Outcome struct {
	Event       *model.Event
	Participant model.ParticipantID
	Role        string // role now held (register, switch) or released (unregister)
	From        string // previous role, for switch

	// Fulfillment is non-nil exactly once per event: on the change that
	// first left every slot filled.
	Fulfillment *Fulfillment
}

// Register puts p into role. Checks run in order: p is set, the event
// exists, the role exists, p holds no other role, the role is open.
func (r *Roster) Register(ctx context.Context, name string, p model.ParticipantID, role string) (*Outcome, error) {
	if p.IsZero() {
		return nil, &Error{Kind: ErrInvalidParticipant, Event: name, Role: role}
	}
	out := &Outcome{Participant: p}
	e, err := r.store.UpdateEvent(ctx, name, func(e *model.Event) error {
		i := e.SlotIndex(role)
		if i < 0 {
			return &Error{Kind: ErrUnknownRole, Event: e.Name, Role: role}
		}
		if held := e.RoleOf(p); held != "" {
			return &Error{Kind: ErrAlreadyRegistered, Event: e.Name, Role: held}
		}
		if s := e.Slots[i]; !s.Open() {
			return &Error{Kind: ErrRoleTaken, Event: e.Name, Role: s.Role, Holder: s.Participant}
		}
		e.Slots[i].Participant = p
		out.Role = e.Slots[i].Role
		out.Fulfillment = r.checkFulfilled(e)
		return nil
	})
	if err != nil {
		return nil, r.mapStoreErr(name, err)
	}
	out.Event = e
	return out, nil
}

// Unregister frees role if p holds it.
func (r *Roster) Unregister(ctx context.Context, name string, p model.ParticipantID, role string) (*Outcome, error) {
	out := &Outcome{Participant: p}
	e, err := r.store.UpdateEvent(ctx, name, func(e *model.Event) error {
		i := e.SlotIndex(role)
		if i < 0 {
			return &Error{Kind: ErrUnknownRole, Event: e.Name, Role: role}
		}
		if p.IsZero() || e.Slots[i].Participant != p {
			return &Error{Kind: ErrNotRegistered, Event: e.Name, Role: e.Slots[i].Role}
		}
		e.Slots[i].Participant = ""
		out.Role = e.Slots[i].Role
		out.Fulfillment = r.checkFulfilled(e)
		return nil
	})
	if err != nil {
		return nil, r.mapStoreErr(name, err)
	}
	out.Event = e
	return out, nil
}

// SwitchRole moves p from its current role to newRole in one step; no
// observer sees p holding both or neither. Switching to the role already
// held succeeds without change.
func (r *Roster) SwitchRole(ctx context.Context, name string, p model.ParticipantID, newRole string) (*Outcome, error) {
	out := &Outcome{Participant: p}
	e, err := r.store.UpdateEvent(ctx, name, func(e *model.Event) error {
		held := e.RoleOf(p)
		if held == "" {
			return &Error{Kind: ErrNotCurrentlyRegistered, Event: e.Name}
		}
		from := e.SlotIndex(held)
		to := e.SlotIndex(newRole)
		if to < 0 {
			return &Error{Kind: ErrUnknownRole, Event: e.Name, Role: newRole}
		}
		out.From = e.Slots[from].Role
		out.Role = e.Slots[to].Role
		if to == from {
			return nil
		}
		if s := e.Slots[to]; !s.Open() {
			return &Error{Kind: ErrRoleTaken, Event: e.Name, Role: s.Role, Holder: s.Participant}
		}
		e.Slots[from].Participant = ""
		e.Slots[to].Participant = p
		out.Fulfillment = r.checkFulfilled(e)
		return nil
	})
	if err != nil {
		return nil, r.mapStoreErr(name, err)
	}
	out.Event = e
	return out, nil
}

func (r *Roster) mapStoreErr(name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: ErrNotFound, Event: name}
	}
	return err
}
