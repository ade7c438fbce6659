package okrhubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal OKR Hub HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set.
	ActorID string
	// TimeFrame is sent as X-Displayed-TimeFrame when not empty.
	TimeFrame  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type Area struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"Name"`
	Description string `json:"Description,omitempty"`
	Owner       string `json:"Owner,omitempty"`
}

type KeyResult struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"Content"`
	Status  string `json:"Status,omitempty"`
	Comment string `json:"Comment,omitempty"`
}

type Objective struct {
	ID          string      `json:"id,omitempty"`
	Name        string      `json:"Name"`
	Description string      `json:"Description,omitempty"`
	Owner       string      `json:"Owner,omitempty"`
	AreaID      *string     `json:"AreaId,omitempty"`
	Order       int         `json:"order,omitempty"`
	KRs         []KeyResult `json:"KRs,omitempty"`
	Comments    string      `json:"Comments,omitempty"`
	WorkItems   []int       `json:"WorkItems,omitempty"`
}

type TimeFrame struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type TimeFrameSet struct {
	ID                 string      `json:"id,omitempty"`
	TimeFrames         []TimeFrame `json:"timeFrames"`
	CurrentTimeFrameID string      `json:"currentTimeFrameId"`
}

type WorkItem struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	State        string `json:"state,omitempty"`
	WorkItemType string `json:"workItemType,omitempty"`
	AssignedTo   string `json:"assignedTo,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Action is a dispatched action as rendered by the server.
type Action map[string]any

// Type returns the action type or "".
func (a Action) Type() string {
	t, _ := a["type"].(string)
	return t
}

// Event represents a log entry.
type Event struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	EntityID string         `json:"entity_id"`
	ActorID  string         `json:"actor_id"`
	Payload  map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses. Action carries the failure action type
// when the server reported one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Action     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Areas lists areas.
func (c *Client) Areas(ctx context.Context) ([]Area, error) {
	var resp struct {
		Payload []Area `json:"payload"`
	}
	err := c.do(ctx, http.MethodGet, "areas", nil, &resp)
	return resp.Payload, err
}

// CreateArea creates an area.
func (c *Client) CreateArea(ctx context.Context, a Area) (Area, error) {
	var resp struct {
		Payload Area `json:"payload"`
	}
	err := c.do(ctx, http.MethodPost, "areas", a, &resp)
	return resp.Payload, err
}

// Bootstrap creates the first area along with the first time frame set.
func (c *Client) Bootstrap(ctx context.Context, a Area) (TimeFrameSet, Area, error) {
	var resp struct {
		Payload struct {
			TimeFrameSet TimeFrameSet `json:"timeFrameSet"`
			Area         Area         `json:"area"`
		} `json:"payload"`
	}
	err := c.do(ctx, http.MethodPost, "bootstrap", a, &resp)
	return resp.Payload.TimeFrameSet, resp.Payload.Area, err
}

// DeleteArea deletes an area and its objectives in the displayed time frame.
func (c *Client) DeleteArea(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "areas/"+url.PathEscape(id), nil, nil)
}

// TimeFrames returns the time frame set, or nil before the first one exists.
func (c *Client) TimeFrames(ctx context.Context) (*TimeFrameSet, error) {
	var resp struct {
		Payload *TimeFrameSet `json:"payload"`
	}
	err := c.do(ctx, http.MethodGet, "timeframes", nil, &resp)
	return resp.Payload, err
}

// SaveTimeFrames saves the set. The returned action is
// updateCurrentTimeFrameSucceed when the current time frame moved away from
// the displayed one.
func (c *Client) SaveTimeFrames(ctx context.Context, set TimeFrameSet) (Action, error) {
	var resp Action
	err := c.do(ctx, http.MethodPut, "timeframes", set, &resp)
	return resp, err
}

// Objectives lists objectives of a time frame.
func (c *Client) Objectives(ctx context.Context, timeFrameID string) ([]Objective, error) {
	var resp struct {
		Payload []Objective `json:"payload"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("timeframes/%s/objectives", url.PathEscape(timeFrameID)), nil, &resp)
	return resp.Payload, err
}

// CreateObjective creates an objective in the displayed time frame.
func (c *Client) CreateObjective(ctx context.Context, o Objective) (Objective, error) {
	var resp struct {
		Payload Objective `json:"payload"`
	}
	err := c.do(ctx, http.MethodPost, "objectives", o, &resp)
	return resp.Payload, err
}

// SetKRStatus updates one key result status.
func (c *Client) SetKRStatus(ctx context.Context, objectiveID, krID, status string) (Objective, error) {
	var resp struct {
		Payload Objective `json:"payload"`
	}
	endpoint := fmt.Sprintf("objectives/%s/krs/%s", url.PathEscape(objectiveID), url.PathEscape(krID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]string{"status": status}, &resp)
	return resp.Payload, err
}

// AddWorkItems links work items to an objective.
func (c *Client) AddWorkItems(ctx context.Context, objectiveID string, ids ...int) ([]WorkItem, Objective, error) {
	var resp struct {
		WorkItems []WorkItem `json:"workItems"`
		Objective Objective  `json:"objective"`
	}
	endpoint := fmt.Sprintf("objectives/%s/workitems", url.PathEscape(objectiveID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"ids": ids}, &resp)
	return resp.WorkItems, resp.Objective, err
}

// WorkItems batch-fetches work items.
func (c *Client) WorkItems(ctx context.Context, ids ...int) ([]WorkItem, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	var resp struct {
		WorkItems []WorkItem `json:"workItems"`
	}
	err := c.do(ctx, http.MethodGet, "workitems?ids="+url.QueryEscape(strings.Join(parts, ",")), nil, &resp)
	return resp.WorkItems, err
}

// Dispatch sends a raw intent and returns every action dispatched for it.
func (c *Client) Dispatch(ctx context.Context, intentType string, payload any) ([]Action, error) {
	body := map[string]any{"type": intentType}
	if payload != nil {
		body["payload"] = payload
	}
	var resp struct {
		Actions []Action `json:"actions"`
	}
	err := c.do(ctx, http.MethodPost, "dispatch", body, &resp)
	return resp.Actions, err
}

// Events returns recent action log entries, optionally filtered by type.
func (c *Client) Events(ctx context.Context, limit int, actionType string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if actionType != "" {
		q.Set("type", actionType)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	if c.TimeFrame != "" {
		req.Header.Set("X-Displayed-TimeFrame", c.TimeFrame)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Action, _ = env.Error.Details["action"].(string)
	}
	return apiErr
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
