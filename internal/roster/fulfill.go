package roster

import (
	"strings"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
)

// CalendarRequest asks the calendar integration to book an event.
type CalendarRequest struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Fulfillment is emitted once, when an event first has every slot filled.
type Fulfillment struct {
	EventName    string                `json:"event_name"`
	Channel      string                `json:"channel,omitempty"`
	Participants []model.ParticipantID `json:"participants"`
	Calendar     CalendarRequest       `json:"calendar"`
}

// checkFulfilled flips e.Fulfilled on the first all-filled observation and
// returns the notification to send. Later calls return nil even if slots
// are freed and refilled.
func (r *Roster) checkFulfilled(e *model.Event) *Fulfillment {
	if e.Fulfilled || !e.AllFilled() {
		return nil
	}
	e.Fulfilled = true

	participants := e.Participants()
	return &Fulfillment{
		EventName:    e.Name,
		Channel:      e.Channel,
		Participants: participants,
		Calendar: CalendarRequest{
			Summary:     e.Name,
			Description: calendarDescription(e.Description, participants),
			Location:    e.Channel,
			Start:       e.ScheduledAt,
			End:         e.ScheduledAt.Add(r.duration),
		},
	}
}

func calendarDescription(desc string, participants []model.ParticipantID) string {
	var b strings.Builder
	if desc != "" {
		b.WriteString(desc)
		b.WriteString("\n\n")
	}
	b.WriteString("📢 Registered members: ")
	b.WriteString(joinParticipants(participants))
	return b.String()
}

func joinParticipants(ps []model.ParticipantID) string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
