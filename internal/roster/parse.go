package roster

import (
	"strings"
	"time"
)

// Input layouts and their user-facing spellings.
const (
	LayoutDateTime     = "2/1/2006 15:04" // also accepts zero-padded day and month
	LayoutDateTimeHint = "DD/MM/YYYY HH:MM"
	LayoutClock        = "15:04"
	LayoutClockHint    = "HH:MM"

	FreeTextUsage = "create event <event_name> at <time> mount <mount_type> description <description>"

	// DefaultDescription is used when a form or message leaves it blank.
	DefaultDescription = "No description provided."
)

// ParseSchedule turns user input into a UTC timestamp. With a date, the
// layout is DD/MM/YYYY HH:MM. Without one, the clock is HH:MM and resolves
// to its next occurrence at or after now. Both are read in loc.
func ParseSchedule(date, clock string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if date != "" {
		t, err := time.ParseInLocation(LayoutDateTime, date+" "+clock, loc)
		if err != nil {
			return time.Time{}, &Error{Kind: ErrInvalidTimeFormat, Expected: LayoutDateTimeHint}
		}
		return t.UTC(), nil
	}

	c, err := time.Parse(LayoutClock, clock)
	if err != nil {
		return time.Time{}, &Error{Kind: ErrInvalidTimeFormat, Expected: LayoutClockHint}
	}
	local := now.In(loc)
	t := time.Date(local.Year(), local.Month(), local.Day(), c.Hour(), c.Minute(), 0, 0, loc)
	if t.Before(local.Truncate(time.Minute)) {
		t = t.AddDate(0, 0, 1)
	}
	return t.UTC(), nil
}

// FreeText is a creation request parsed from a chat message.
type FreeText struct {
	Name        string
	Clock       string
	MountType   string
	Description string
}

// IsCreateMessage reports whether a chat message is addressed to the
// free-text parser, i.e. starts with "create event".
func IsCreateMessage(content string) bool {
	f := strings.Fields(content)
	return len(f) >= 2 && strings.EqualFold(f[0], "create") && strings.EqualFold(f[1], "event")
}

// ParseFreeText parses
//
//	create event <name> at <HH:MM> mount <type> description <text...>
//
// Keywords are case-insensitive. Any deviation, including a time token
// that is not HH:MM, yields ErrInvalidFreeText.
func ParseFreeText(content string) (*FreeText, error) {
	f := strings.Fields(content)
	if !IsCreateMessage(content) || len(f) < 8 {
		return nil, &Error{Kind: ErrInvalidFreeText}
	}
	if !strings.EqualFold(f[3], "at") || !strings.EqualFold(f[5], "mount") || !strings.EqualFold(f[7], "description") {
		return nil, &Error{Kind: ErrInvalidFreeText}
	}
	if _, err := time.Parse(LayoutClock, f[4]); err != nil {
		return nil, &Error{Kind: ErrInvalidFreeText}
	}

	desc := strings.Join(f[8:], " ")
	if desc == "" {
		desc = DefaultDescription
	}
	return &FreeText{
		Name:        f[2],
		Clock:       f[4],
		MountType:   f[6],
		Description: desc,
	}, nil
}
