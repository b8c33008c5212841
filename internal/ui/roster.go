package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
)

// openLabel is shown in place of a participant for an unfilled slot.
const openLabel = "(open)"

// RenderEvent writes a human-readable summary of e: a header line, the
// schedule in loc, and one aligned row per role slot.
func RenderEvent(e *model.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	status := RenderWarn("recruiting")
	if e.Fulfilled {
		status = RenderAccent("fulfilled")
	}
	fmt.Fprintf(&b, "%s  %s  %s\n", RenderAccent(e.Name), RenderMuted(e.Template), status)
	fmt.Fprintf(&b, "  %s\n", e.ScheduledAt.In(loc).Format("Mon 02/01/2006 15:04 MST"))
	if e.MountType != "" {
		fmt.Fprintf(&b, "  mount: %s\n", e.MountType)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, "  %s\n", e.Description)
	}

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, s := range e.Slots {
		who := RenderOpen(openLabel)
		if !s.Open() {
			who = s.Participant.String()
		}
		fmt.Fprintf(tw, "  %s\t%s\n", s.Role, who)
	}
	_ = tw.Flush()
	return b.String()
}

// RenderEventLine is the one-line form of e used by list output.
func RenderEventLine(e *model.Event, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	filled := len(e.Slots) - len(e.OpenRoles())
	count := fmt.Sprintf("%d/%d", filled, len(e.Slots))
	if e.Fulfilled {
		count = RenderAccent(count)
	} else {
		count = RenderWarn(count)
	}
	return fmt.Sprintf("%-20s %-12s %s  %s",
		e.Name, e.Template, e.ScheduledAt.In(loc).Format("02/01/2006 15:04"), count)
}
