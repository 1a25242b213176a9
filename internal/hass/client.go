package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"smart_heating/internal/models"
)

// EntityState is one entity snapshot from the host runtime.
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Client talks to the host runtime's REST API: entity states, calendar
// windows and climate service calls.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the given base URL and long-lived token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetState fetches one entity. Returns (nil, nil) when the entity does not
// exist, so callers treat it as "no data" rather than an error.
func (c *Client) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get state %s: %w", entityID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get state %s: unexpected status %d", entityID, resp.StatusCode)
	}

	var st EntityState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", entityID, err)
	}
	return &st, nil
}

// calendarEvent matches the wire shape of the calendar API, where start and
// end may be either plain strings or {"dateTime": ...} objects.
type calendarEvent struct {
	Summary string          `json:"summary"`
	Start   json.RawMessage `json:"start"`
	End     json.RawMessage `json:"end"`
}

// GetCalendarEvents fetches the calendar window [start, end].
func (c *Client) GetCalendarEvents(ctx context.Context, calendarID string, start, end time.Time) ([]models.CalendarEvent, error) {
	path := fmt.Sprintf("/api/calendars/%s?start=%s&end=%s",
		url.PathEscape(calendarID),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get calendar %s: %w", calendarID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get calendar %s: unexpected status %d", calendarID, resp.StatusCode)
	}

	var raw []calendarEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode calendar %s: %w", calendarID, err)
	}

	events := make([]models.CalendarEvent, 0, len(raw))
	for _, ev := range raw {
		events = append(events, models.CalendarEvent{
			Summary: ev.Summary,
			Start:   decodeEventTime(ev.Start),
			End:     decodeEventTime(ev.End),
		})
	}
	return events, nil
}

// decodeEventTime accepts "2025-01-01T10:00:00Z", {"dateTime": "..."} or
// {"date": "..."} and returns the inner string ("" when absent).
func decodeEventTime(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		DateTime string `json:"dateTime"`
		Date     string `json:"date"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.DateTime != "" {
			return obj.DateTime
		}
		return obj.Date
	}
	return ""
}

// SetTemperature issues a climate set_temperature service call for a device.
func (c *Client) SetTemperature(ctx context.Context, deviceID string, temperature float64) error {
	body, err := json.Marshal(map[string]any{
		"entity_id":   deviceID,
		"temperature": temperature,
	})
	if err != nil {
		return fmt.Errorf("marshal set_temperature payload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/services/climate/set_temperature", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("set temperature on %s: %w", deviceID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("set temperature on %s: unexpected status %d", deviceID, resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
