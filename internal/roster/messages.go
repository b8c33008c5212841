package roster

import (
	"fmt"

	"github.com/alfredjeanlab/muster/internal/model"
)

// CreatedText confirms a new event to its creator.
func CreatedText(e *model.Event) string {
	return fmt.Sprintf("✅ Event **%s** created successfully!", e.Name)
}

// RegisteredText confirms a registration to the participant.
func RegisteredText(o *Outcome) string {
	return fmt.Sprintf("✅ You've successfully registered as **%s** for **%s**!", o.Role, o.Event.Name)
}

// UnregisteredText confirms a freed role to the participant who left it.
func UnregisteredText(o *Outcome) string {
	return fmt.Sprintf("You've successfully unregistered from %s.", o.Role)
}

// UnregisteredNotice is the public broadcast for a freed slot.
func UnregisteredNotice(o *Outcome) string {
	return fmt.Sprintf("⚠️ %s unregistered from **%s** in **%s**.", o.Participant, o.Role, o.Event.Name)
}

// SwitchedText confirms a role switch, naming both roles.
func SwitchedText(o *Outcome) string {
	return fmt.Sprintf("✅ You've successfully switched from `%s` to `%s` for the event **%s**!", o.From, o.Role, o.Event.Name)
}

// FulfilledText announces that every role is taken and lists the holders.
func FulfilledText(f *Fulfillment) string {
	return fmt.Sprintf("✅ All positions for **%s** are filled! Participants: %s", f.EventName, joinParticipants(f.Participants))
}

// ReminderText is posted when the event starts.
func ReminderText(e *model.Event) string {
	ps := e.Participants()
	if len(ps) == 0 {
		return fmt.Sprintf("⏰ The event **%s** is starting now! No participants registered.", e.Name)
	}
	return fmt.Sprintf("⏰ The event **%s** is starting now! Participants: %s", e.Name, joinParticipants(ps))
}

// CalendarText links the calendar entry booked for a fulfilled event.
func CalendarText(ref string) string {
	return "📅 **Calendar Event Created:** " + ref
}

// ClearedText reports how many messages a clear request deleted.
func ClearedText(n int) string {
	return fmt.Sprintf("✅ Successfully deleted %d message(s).", n)
}
