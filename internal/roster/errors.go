package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/muster/internal/model"
)

// Error kinds. Every failed operation returns an error that matches
// exactly one of these with errors.Is.
var (
	ErrTemplateNotFound       = errors.New("template not found")
	ErrDuplicateName          = errors.New("duplicate event name")
	ErrNotFound               = errors.New("event not found")
	ErrUnknownRole            = errors.New("unknown role")
	ErrAlreadyRegistered      = errors.New("already registered elsewhere")
	ErrRoleTaken              = errors.New("role taken")
	ErrNotRegistered          = errors.New("not registered for role")
	ErrNotCurrentlyRegistered = errors.New("not currently registered")
	ErrInvalidTimeFormat      = errors.New("invalid time format")
	ErrInvalidFreeText        = errors.New("invalid free-text format")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidParticipant     = errors.New("participant is required")
	ErrForbidden              = errors.New("forbidden")
)

// Error carries the context of a failed operation. Kind is one of the
// sentinel errors above.
type Error struct {
	Kind     error
	Event    string
	Role     string
	Holder   model.ParticipantID // current occupant, for ErrRoleTaken
	Expected string              // expected input layout, for ErrInvalidTimeFormat
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Event != "" {
		fmt.Fprintf(&b, " (event %q", e.Event)
		if e.Role != "" {
			fmt.Fprintf(&b, ", role %q", e.Role)
		}
		b.WriteString(")")
	} else if e.Role != "" {
		fmt.Fprintf(&b, " (role %q)", e.Role)
	}
	if e.Expected != "" {
		fmt.Fprintf(&b, ": expected %s", e.Expected)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Message renders err as a short sentence for the requester.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *Error
	errors.As(err, &re)
	detail := func(f func(*Error) string, fallback string) string {
		if re != nil {
			return f(re)
		}
		return fallback
	}

	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		return "❌ " + ve.Error()
	case errors.Is(err, ErrTemplateNotFound):
		return "Event template not found."
	case errors.Is(err, ErrDuplicateName):
		return detail(func(e *Error) string {
			return fmt.Sprintf("❌ An event named **%s** already exists.", e.Event)
		}, "❌ An event with that name already exists.")
	case errors.Is(err, ErrNotFound):
		return "❌ Event not found. Please provide a valid event name."
	case errors.Is(err, ErrUnknownRole):
		return detail(func(e *Error) string {
			return fmt.Sprintf("❌ `%s` is not a valid role for this event.", e.Role)
		}, "❌ That is not a valid role for this event.")
	case errors.Is(err, ErrAlreadyRegistered):
		return "You are already registered for a role in this event."
	case errors.Is(err, ErrRoleTaken):
		return detail(func(e *Error) string {
			return fmt.Sprintf("Role %s is already taken by %s.", e.Role, e.Holder)
		}, "That role is already taken.")
	case errors.Is(err, ErrNotRegistered):
		return "You are not registered for this role."
	case errors.Is(err, ErrNotCurrentlyRegistered):
		return "❌ You are not registered for any role in this event."
	case errors.Is(err, ErrInvalidTimeFormat):
		return detail(func(e *Error) string {
			if e.Expected == LayoutClockHint {
				return "Invalid time format. Please use HH:MM (24-hour)."
			}
			return fmt.Sprintf("Invalid date or time format. Please use the format: `%s`.", e.Expected)
		}, "Invalid date or time format. Please use the format: `DD/MM/YYYY HH:MM`.")
	case errors.Is(err, ErrInvalidFreeText):
		return "Invalid format. Please use: `" + FreeTextUsage + "`"
	case errors.Is(err, ErrInvalidAmount):
		return "❌ Please specify a valid number of messages to delete (greater than 0)."
	case errors.Is(err, ErrInvalidParticipant):
		return "❌ Could not tell who is registering."
	case errors.Is(err, ErrForbidden):
		return "❌ You need the Manage Messages permission to do that."
	default:
		return "❌ Something went wrong, please try again."
	}
}
