// Package client implements the HTTP client for the automation
// persistence service. It is the only transport the editor session uses;
// all failures are translated into the application's error taxonomy so
// callers can distinguish not-found, timeout, network, and
// server-rejected-payload classes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/flowforge/pkg/automation"
	"github.com/matzehuels/flowforge/pkg/editor"
	"github.com/matzehuels/flowforge/pkg/engine"
	apperrors "github.com/matzehuels/flowforge/pkg/errors"
	"github.com/matzehuels/flowforge/pkg/httputil"
	"github.com/matzehuels/flowforge/pkg/wire"
)

// DefaultTimeout bounds every persistence call. Timeouts are the
// transport layer's responsibility, not the graph core's.
const DefaultTimeout = 30 * time.Second

// Client talks to the persistence service REST API.
type Client struct {
	base string
	http *http.Client
}

var _ editor.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client entirely.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the service at baseURL (e.g.
// "http://localhost:5000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the service's response wrapper.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Get fetches an automation by ID.
func (c *Client) Get(ctx context.Context, id string) (*automation.Automation, error) {
	var a automation.Automation
	if err := c.doRetry(ctx, http.MethodGet, "/automations/"+url.PathEscape(id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// List fetches all automations.
func (c *Client) List(ctx context.Context) ([]automation.Automation, error) {
	var out []automation.Automation
	if err := c.doRetry(ctx, http.MethodGet, "/automations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// createPayload mirrors the service's create/update body.
type createPayload struct {
	Name     *string     `json:"name,omitempty"`
	FlowData *wire.Graph `json:"flowData,omitempty"`
}

// Create persists a new automation and returns it with its assigned ID
// and timestamps.
func (c *Client) Create(ctx context.Context, name string, flowData wire.Graph) (*automation.Automation, error) {
	var a automation.Automation
	body := createPayload{Name: &name, FlowData: &flowData}
	if err := c.do(ctx, http.MethodPost, "/automations", body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update applies a partial update; name and flowData are each optional.
func (c *Client) Update(ctx context.Context, id string, upd automation.Update) (*automation.Automation, error) {
	var a automation.Automation
	body := createPayload{Name: upd.Name, FlowData: upd.FlowData}
	if err := c.do(ctx, http.MethodPut, "/automations/"+url.PathEscape(id), body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an automation.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/automations/"+url.PathEscape(id), nil, nil)
}

// TestRun executes a dry run of the persisted automation on the service.
func (c *Client) TestRun(ctx context.Context, id string, in engine.Input) (*engine.RunLog, error) {
	var log engine.RunLog
	if err := c.do(ctx, http.MethodPost, "/execute/"+url.PathEscape(id)+"/test", in, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// RunLogs fetches recent test runs for an automation, newest first.
func (c *Client) RunLogs(ctx context.Context, id string) ([]engine.RunLog, error) {
	var out []engine.RunLog
	if err := c.doRetry(ctx, http.MethodGet, "/execute/"+url.PathEscape(id)+"/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// doRetry wraps do with backoff for idempotent reads. Writes are never
// retried automatically; the editor surfaces the failure and keeps the
// in-memory graph so the user can retry.
func (c *Client) doRetry(ctx context.Context, method, path string, body, out any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		return c.do(ctx, method, path, body, out)
	})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode response")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "decode response data")
	}
	return nil
}

// transportError classifies a failed round trip: timeouts and network
// unreachability are distinguishable, and both are retryable.
func transportError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return &httputil.RetryableError{
			Err: apperrors.Wrap(apperrors.ErrCodeTimeout, err, "request timed out"),
		}
	}
	return &httputil.RetryableError{
		Err: apperrors.Wrap(apperrors.ErrCodeNetwork, err, "cannot reach persistence service"),
	}
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.New(apperrors.ErrCodeNotFound, "%s", serverMessage(resp, "automation not found"))
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusBadRequest:
		return apperrors.New(apperrors.ErrCodeValidationFailed, "%s", serverMessage(resp, "payload rejected"))
	case resp.StatusCode >= 500:
		return &httputil.RetryableError{
			Err: apperrors.New(apperrors.ErrCodeNetwork, "server error: %s", serverMessage(resp, resp.Status)),
		}
	default:
		return apperrors.New(apperrors.ErrCodeNetwork, "unexpected status %d: %s", resp.StatusCode, serverMessage(resp, ""))
	}
}

// serverMessage extracts the human-readable message from an error
// response, falling back to fallback when the body is unusable.
func serverMessage(resp *http.Response, fallback string) string {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
		return env.Message
	}
	if fallback == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fallback
}
