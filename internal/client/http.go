package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/muster/internal/model"
)

// HTTPClient implements MusterClient using the muster HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ MusterClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Creation ---

func (c *HTTPClient) CreateEvent(ctx context.Context, req *CreateEventRequest) (*Result, error) {
	var res Result
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SubmitForm(ctx context.Context, req *FormRequest) (*Result, error) {
	var res Result
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events/form", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, req *MessageRequest) (*Result, error) {
	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodPost, "/v1/messages", req, &raw)
	if err != nil {
		return nil, err
	}
	if status == http.StatusAccepted {
		return &Result{Ignored: true}, nil
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &res, nil
}

// --- Registry ---

func (c *HTTPClient) GetEvent(ctx context.Context, name string) (*model.Event, error) {
	var e model.Event
	if err := c.doJSON(ctx, http.MethodGet, eventPath(name), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *HTTPClient) ListEvents(ctx context.Context) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

func (c *HTTPClient) ListTemplates(ctx context.Context) ([]model.RoleTemplate, error) {
	var resp struct {
		Templates []model.RoleTemplate `json:"templates"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// --- Registration ---

func (c *HTTPClient) Register(ctx context.Context, event, participant, role string) (*Result, error) {
	return c.registration(ctx, event, "register", participant, role)
}

func (c *HTTPClient) Unregister(ctx context.Context, event, participant, role string) (*Result, error) {
	return c.registration(ctx, event, "unregister", participant, role)
}

func (c *HTTPClient) SwitchRole(ctx context.Context, event, participant, role string) (*Result, error) {
	return c.registration(ctx, event, "switch", participant, role)
}

func (c *HTTPClient) registration(ctx context.Context, event, action, participant, role string) (*Result, error) {
	body := map[string]string{"participant": participant, "role": role}
	var res Result
	if err := c.doJSON(ctx, http.MethodPost, eventPath(event)+"/"+action, body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// --- Journal and board ---

func (c *HTTPClient) GetJournal(ctx context.Context, event string) ([]*model.Entry, error) {
	var resp struct {
		Entries []*model.Entry `json:"entries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, eventPath(event)+"/journal", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *HTTPClient) GetAnnouncement(ctx context.Context, ref string) (*Message, error) {
	var m Message
	if err := c.doJSON(ctx, http.MethodGet, "/v1/announcements/"+url.PathEscape(ref), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) ListChannel(ctx context.Context, channel string) ([]*Message, error) {
	var resp struct {
		Messages []*Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/channels/"+url.PathEscape(channel)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *HTTPClient) ClearChannel(ctx context.Context, channel string, req *ClearRequest) (*ClearResponse, error) {
	var resp ClearResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/channels/"+url.PathEscape(channel)+"/clear", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Scanner ---

// Tick runs one reminder scan at the given instant, or now if at is nil,
// and returns the names of the events that were reminded and removed.
func (c *HTTPClient) Tick(ctx context.Context, at *time.Time) ([]string, error) {
	var body any
	if at != nil {
		body = map[string]time.Time{"now": *at}
	}
	var resp struct {
		Reminded []string `json:"reminded"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/scanner/tick", body, &resp); err != nil {
		return nil, err
	}
	return resp.Reminded, nil
}

// --- Notifications ---

// Stream reads the server's SSE notification stream and calls fn for each
// notification until ctx is done, the server closes the stream, or fn
// returns an error.
func (c *HTTPClient) Stream(ctx context.Context, topics []string, fn func(Notification) error) error {
	path := "/v1/notifications/stream"
	if len(topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(topics, ",")}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var cur Notification
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			cur.ID = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			cur.Topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			cur.Data = []byte(strings.TrimPrefix(line, "data:"))
		case line == "":
			if cur.Topic != "" {
				if err := fn(cur); err != nil {
					return err
				}
			}
			cur = Notification{}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	return nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

func eventPath(name string) string {
	return "/v1/events/" + url.PathEscape(name)
}

// APIError represents an error response from the server. Message is the
// user-facing sentence the server chose for the failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(status int, body []byte) *APIError {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	_, err := c.do(ctx, method, path, body, result)
	return err
}

// do is doJSON that also reports the success status code.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, result any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
