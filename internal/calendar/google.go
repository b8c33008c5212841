package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/alfredjeanlab/muster/internal/roster"
)

// GoogleConfig holds the OAuth client and the target calendar.
type GoogleConfig struct {
	CalendarID   string // "primary" if empty
	ClientID     string
	ClientSecret string
	TokenFile    string
}

// Google inserts fulfilled events into a Google Calendar.
type Google struct {
	service    *gcal.Service
	calendarID string
	logger     *slog.Logger
}

// NewGoogle builds an authenticated client from the stored OAuth token.
// Extra options are passed to the Calendar API client after the
// authenticated HTTP client.
func NewGoogle(ctx context.Context, cfg GoogleConfig, logger *slog.Logger, opts ...option.ClientOption) (*Google, error) {
	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("loading token %s: %w; run 'muster calendar auth' first", cfg.TokenFile, err)
	}
	httpClient := OAuthConfig(cfg.ClientID, cfg.ClientSecret).Client(ctx, token)
	return newGoogle(ctx, cfg.CalendarID, logger, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
}

func newGoogle(ctx context.Context, calendarID string, logger *slog.Logger, opts ...option.ClientOption) (*Google, error) {
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Google{service: service, calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts the event and returns its HTML link.
func (g *Google) CreateEvent(ctx context.Context, req roster.CalendarRequest) (string, error) {
	ev := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       &gcal.EventDateTime{DateTime: req.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: req.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	created, err := g.service.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting calendar event: %w", err)
	}
	g.logger.Info("calendar event created", "summary", req.Summary, "id", created.Id)
	if created.HtmlLink != "" {
		return created.HtmlLink, nil
	}
	return created.Id, nil
}

// OAuthConfig returns the desktop-flow OAuth config for the events scope.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{gcal.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

// SaveToken writes an OAuth token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
