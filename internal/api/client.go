package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"contentstudio/internal/progress"
)

const (
	// DefaultTimeout bounds a single API request. Generation itself is
	// asynchronous, so requests stay short.
	DefaultTimeout = 30 * time.Second

	snapshotCacheSize = 256
)

var (
	// ErrTaskNotFound indicates the content API does not know the task ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinished indicates a cancel request arrived after the task
	// reached a terminal state.
	ErrTaskFinished = errors.New("task already finished")
	// ErrUnauthorized indicates the workspace token was rejected.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client is an HTTP client for one content API workspace.
type Client struct {
	baseURL   string
	eventsURL string
	token     string
	http      *resty.Client
	snapshots *snapshotCache // Terminal snapshots by task ID
}

// Option configures a Client.
type Option func(*Client)

// WithEventsURL overrides the WebSocket endpoint derived from the base
// URL for task event subscriptions.
func WithEventsURL(u string) Option {
	return func(c *Client) {
		c.eventsURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// NewClient creates a content API client. The workspace token is sent
// as a bearer Authorization header on every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	client := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		snapshots: newSnapshotCache(snapshotCacheSize),
	}

	client.http = resty.New().
		SetHeader("User-Agent", "contentstudio-cli").
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		SetTimeout(DefaultTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// Retry on 429 (Too Many Requests) and 5xx server errors
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Get performs a GET request against the content API
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)

	if params != nil {
		req.SetQueryParams(params)
	}

	return req.Get(c.buildURL(endpoint))
}

// Post performs a POST request against the content API
func (c *Client) Post(ctx context.Context, endpoint string, payload interface{}) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)

	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	return req.Post(c.buildURL(endpoint))
}

// Put performs a PUT request against the content API
func (c *Client) Put(ctx context.Context, endpoint string, payload interface{}) (*resty.Response, error) {
	return c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(c.buildURL(endpoint))
}

// Delete performs a DELETE request against the content API
func (c *Client) Delete(ctx context.Context, endpoint string, params map[string]string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)

	if params != nil {
		req.SetQueryParams(params)
	}

	return req.Delete(c.buildURL(endpoint))
}

// GetTaskStatus fetches the current snapshot for a task (the pull
// path). Terminal snapshots are cached so repeated reads of finished
// tasks skip the network; running tasks are always fetched fresh.
func (c *Client) GetTaskStatus(ctx context.Context, taskID string) (progress.TaskSnapshot, error) {
	if snap, ok := c.snapshots.Get(taskID); ok {
		return snap, nil
	}

	resp, err := c.Get(ctx, fmt.Sprintf("tasks/%s/status", taskID), nil)
	if err != nil {
		return progress.TaskSnapshot{}, fmt.Errorf("failed to fetch task status: %w", err)
	}
	if resp.StatusCode() == 404 {
		return progress.TaskSnapshot{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if resp.StatusCode() == 401 {
		return progress.TaskSnapshot{}, ErrUnauthorized
	}
	if !resp.IsSuccess() {
		return progress.TaskSnapshot{}, fmt.Errorf("status request failed: %s", resp.Status())
	}

	var snap progress.TaskSnapshot
	if err := json.Unmarshal(resp.Body(), &snap); err != nil {
		return progress.TaskSnapshot{}, fmt.Errorf("failed to parse task snapshot: %w", err)
	}
	if snap.TaskID == "" {
		snap.TaskID = taskID
	}

	if snap.Terminal() {
		c.snapshots.Put(taskID, snap)
	}

	return snap, nil
}

// CancelTask requests cancellation of a running task. The backend
// reports the outcome through subsequent snapshots; a task that already
// finished returns ErrTaskFinished.
func (c *Client) CancelTask(ctx context.Context, taskID string) error {
	resp, err := c.Post(ctx, fmt.Sprintf("tasks/%s/cancel", taskID), nil)
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}

	switch {
	case resp.StatusCode() == 404:
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	case resp.StatusCode() == 409:
		return ErrTaskFinished
	case resp.StatusCode() == 401:
		return ErrUnauthorized
	case !resp.IsSuccess():
		return fmt.Errorf("cancel request failed: %s", resp.Status())
	}

	return nil
}

// Ping verifies connectivity and credentials against the workspace.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Get(ctx, "me", nil)
	if err != nil {
		return fmt.Errorf("failed to reach content API: %w", err)
	}
	if resp.StatusCode() == 401 {
		return ErrUnauthorized
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("unexpected response: %s", resp.Status())
	}
	return nil
}

// EventsEndpoint returns the WebSocket URL for a task's event stream.
// Unless overridden, it is derived from the base URL by swapping the
// scheme to ws/wss.
func (c *Client) EventsEndpoint(taskID string) (string, error) {
	base := c.eventsURL
	if base == "" {
		u, err := url.Parse(c.baseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base URL: %w", err)
		}
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		default:
			return "", fmt.Errorf("cannot derive events endpoint from scheme %q", u.Scheme)
		}
		base = strings.TrimRight(u.String(), "/")
	}
	return fmt.Sprintf("%s/tasks/%s/events", base, taskID), nil
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// buildURL constructs the full URL for an endpoint
func (c *Client) buildURL(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "/")
	return fmt.Sprintf("%s/%s", c.baseURL, endpoint)
}
