package weekplansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Weekplan HTTP API client.
type Client struct {
	BaseURL    string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Week represents the API week model.
type Week struct {
	ID             string `json:"id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
}

// Task represents the API task model (partial).
type Task struct {
	ID                string  `json:"id"`
	WeekID            string  `json:"week_id"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	IsRecurring       bool    `json:"is_recurring"`
	StalenessCount    int     `json:"staleness_count"`
	PreviousVersionID *string `json:"previous_version_id,omitempty"`
}

// WeekStats summarizes a week's completion.
type WeekStats struct {
	WeekID         string `json:"week_id"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Percentage     int    `json:"percentage"`
	Score          string `json:"score"`
}

// RolloverPlan carries the candidate lists for generating a week.
type RolloverPlan struct {
	RecurringTasks  []PlanCandidate `json:"recurring_tasks"`
	IncompleteTasks []PlanCandidate `json:"incomplete_tasks"`
	FollowUps       []PlanCandidate `json:"follow_ups"`
	BacklogItems    []PlanCandidate `json:"backlog_items"`
}

// PlanCandidate is one selectable entry of a rollover plan.
type PlanCandidate struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Selected bool   `json:"selected"`
}

// GenerateWeekRequest selects what a generated week is seeded with.
type GenerateWeekRequest struct {
	WeekID         string   `json:"week_id"`
	RecurringIDs   []string `json:"recurring_ids,omitempty"`
	TaskIDs        []string `json:"task_ids,omitempty"`
	FollowUpIDs    []string `json:"follow_up_ids,omitempty"`
	BacklogItemIDs []string `json:"backlog_item_ids,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateWeek materializes an empty week.
func (c *Client) CreateWeek(ctx context.Context, id string) (Week, error) {
	var resp Week
	err := c.do(ctx, http.MethodPost, "v0/weeks", map[string]any{"id": id}, &resp)
	return resp, err
}

// GetWeek fetches a week by id.
func (c *Client) GetWeek(ctx context.Context, id string) (Week, error) {
	var resp Week
	err := c.do(ctx, http.MethodGet, "v0/weeks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// WeekStats returns completion stats and the score for a week.
func (c *Client) WeekStats(ctx context.Context, id string) (WeekStats, error) {
	var resp WeekStats
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/weeks/%s/stats", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// WeekTasks lists a week's tasks.
func (c *Client) WeekTasks(ctx context.Context, id string) ([]Task, error) {
	var resp []Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/weeks/%s/tasks", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// PlanRollover returns the candidate lists for the next week.
func (c *Client) PlanRollover(ctx context.Context, previousWeekID string) (RolloverPlan, error) {
	endpoint := "v0/rollover/plan"
	if previousWeekID != "" {
		endpoint += "?previous_week_id=" + url.QueryEscape(previousWeekID)
	}
	var resp RolloverPlan
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GenerateWeek creates a week from rollover selections.
func (c *Client) GenerateWeek(ctx context.Context, req GenerateWeekRequest) (Week, error) {
	var resp Week
	err := c.do(ctx, http.MethodPost, "v0/weeks/generate", req, &resp)
	return resp, err
}

// CreateTask adds a task to a week.
func (c *Client) CreateTask(ctx context.Context, weekID, title, contentMarkdown string) (Task, error) {
	body := map[string]any{
		"week_id":          weekID,
		"title":            title,
		"content_markdown": contentMarkdown,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

// ToggleTask flips a task between pending and completed.
func (c *Client) ToggleTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/tasks/%s/toggle", url.PathEscape(taskID)), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
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
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
