// Package api is the HTTP+JSON client for the exam scheduling service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service paths.
const (
	PathVerify          = "/api/schedule/verify"
	PathCommit          = "/api/schedule/commit"
	PathRemove          = "/api/schedule/remove"
	PathSlotTime        = "/api/schedule/slot-time"
	PathUnscheduled     = "/api/schedule/unscheduled"
	PathScheduled       = "/api/schedule/scheduled"
	PathSlots           = "/api/schedule/slots"
	PathVerifyRoom      = "/api/rooms/verify"
	PathChangeRoom      = "/api/rooms/change"
	PathVerifyStudents  = "/api/rooms/students/verify"
	PathChangeStudents  = "/api/rooms/students/change"
	HeaderRequestID     = "X-Request-ID"
	defaultTimeout      = 10 * time.Second
	maxErrorBodyPreview = 512
)

// Client talks to the scheduling service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	now        func() time.Time
	onRequest  func(RequestInfo)
}

// RequestInfo describes a finished request, for debug logging.
type RequestInfo struct {
	ID       string
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSession attaches the operator session.
func WithSession(s Session) Option {
	return func(c *Client) { c.session = s }
}

// WithClock overrides the clock used for session expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRequestHook is called after every request.
func WithRequestHook(fn func(RequestInfo)) Option {
	return func(c *Client) { c.onRequest = fn }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("service base url is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the operator session.
func (c *Client) Session() Session {
	return c.session
}

// do sends one request and decodes the envelope. Transport errors, non-2xx
// statuses and undecodable bodies are returned as errors; success=false
// is left for the caller to classify.
func (c *Client) do(ctx context.Context, method, path string, body any) (env Envelope, err error) {
	if c.session.Expired(c.now()) {
		return Envelope{}, ErrSessionExpired
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return Envelope{}, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Envelope{}, fmt.Errorf("creating request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.session.Anonymous() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	start := c.now()
	status := 0
	defer func() {
		if c.onRequest != nil {
			c.onRequest(RequestInfo{
				ID:       requestID,
				Method:   method,
				Path:     path,
				Status:   status,
				Duration: c.now().Sub(start),
				Err:      err,
			})
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return Envelope{}, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		msg := strings.TrimSpace(string(preview))
		var rejected Envelope
		if json.Unmarshal(preview, &rejected) == nil && rejected.Message != "" {
			msg = rejected.Message
		}
		return Envelope{}, &ServiceError{Op: method + " " + path, Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return env, nil
}

// call runs do and folds every failure, including success=false, into kind.
func (c *Client) call(ctx context.Context, kind error, method, path string, body any) (Envelope, error) {
	env, err := c.do(ctx, method, path, body)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", kind, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "rejected by service"
		}
		return Envelope{}, fmt.Errorf("%w: %w", kind, &ServiceError{Op: method + " " + path, Status: http.StatusOK, Message: msg})
	}
	return env, nil
}
