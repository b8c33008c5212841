package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/alfredjeanlab/muster/internal/roster"
)

// basicAuthTransport adds Basic Auth and a User-Agent to each request.
type basicAuthTransport struct {
	username  string
	password  string
	transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	req.Header.Set("User-Agent", "muster/1.0")
	return t.transport.RoundTrip(req)
}

// CalDAVConfig selects a calendar on a CalDAV server.
type CalDAVConfig struct {
	URL      string
	Username string
	Password string
	Calendar string // display name; empty picks the first calendar
}

// CalDAV writes fulfilled events to a CalDAV calendar collection.
type CalDAV struct {
	client       *caldav.Client
	calendarPath string
	logger       *slog.Logger
}

// NewCalDAV connects to the server and resolves the configured calendar.
func NewCalDAV(ctx context.Context, cfg CalDAVConfig, logger *slog.Logger) (*CalDAV, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &basicAuthTransport{
			username:  cfg.Username,
			password:  cfg.Password,
			transport: http.DefaultTransport,
		},
	}
	client, err := caldav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("creating caldav client: %w", err)
	}

	c := &CalDAV{client: client, logger: logger}
	c.calendarPath, err = c.findCalendar(ctx, cfg.Calendar)
	if err != nil {
		return nil, fmt.Errorf("finding calendar %q: %w", cfg.Calendar, err)
	}
	logger.Info("caldav calendar resolved", "path", c.calendarPath)
	return c, nil
}

// CreateEvent PUTs a VEVENT into the calendar and returns its UID.
func (c *CalDAV) CreateEvent(ctx context.Context, req roster.CalendarRequest) (string, error) {
	uid := NewUID()
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, toVEvent(uid, req, time.Now()))

	objectPath := path.Join(c.calendarPath, uid+".ics")
	if _, err := c.client.PutCalendarObject(ctx, objectPath, cal); err != nil {
		return "", fmt.Errorf("putting calendar object: %w", err)
	}
	c.logger.Info("calendar event created", "summary", req.Summary, "uid", uid)
	return uid, nil
}

func toVEvent(uid string, req roster.CalendarRequest, now time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, req.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, req.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, req.End.UTC())
	if req.Description != "" {
		ve.Props.SetText(ical.PropDescription, req.Description)
	}
	if req.Location != "" {
		ve.Props.SetText(ical.PropLocation, req.Location)
	}
	return ve
}

func (c *CalDAV) findCalendar(ctx context.Context, name string) (string, error) {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("finding principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("finding calendar home set: %w", err)
	}
	calendars, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("listing calendars: %w", err)
	}
	for _, cal := range calendars {
		if name == "" || strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("no calendar named %q", name)
}
