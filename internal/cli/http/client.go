// Package httpclient talks to a running conductor on behalf of the human agent.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sregrade/internal/conductor/model"
)

const userAgent = "sregrade-cli"

// ResponseInfo is one raw conductor reply.
type ResponseInfo struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// OK reports a 2xx status.
func (r ResponseInfo) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Detail returns the conductor's {"detail": ...} error text, or "" when the body has none.
func (r ResponseInfo) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return ""
	}
	return body.Detail
}

// StatusError is returned by the typed calls for non-2xx replies.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("conductor returned %d", e.StatusCode)
	}
	return fmt.Sprintf("conductor returned %d: %s", e.StatusCode, e.Detail)
}

// Client is bound to one conductor base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// SetTimeout ignores non-positive values.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
}

func (c *Client) Timeout() time.Duration { return c.http.Timeout }

// Do sends one request and returns the reply whatever its status.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (ResponseInfo, error) {
	var info ResponseInfo
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return info, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	info.Duration = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info.StatusCode = resp.StatusCode
	info.Headers = resp.Header
	if info.Body, err = io.ReadAll(resp.Body); err != nil {
		return info, fmt.Errorf("read response body failed: %w", err)
	}
	return info, nil
}

// Status returns the conductor's current stage.
func (c *Client) Status(ctx context.Context) (model.Stage, error) {
	var body model.StatusResponse
	if err := c.getJSON(ctx, "/status", &body); err != nil {
		return "", err
	}
	return body.Stage, nil
}

// Problem returns the id of the active problem.
func (c *Client) Problem(ctx context.Context) (string, error) {
	var body model.ProblemResponse
	if err := c.getJSON(ctx, "/get_problem", &body); err != nil {
		return "", err
	}
	return body.ProblemID, nil
}

// App describes the application under test.
func (c *Client) App(ctx context.Context) (model.AppInfo, error) {
	var body model.AppInfo
	err := c.getJSON(ctx, "/get_app", &body)
	return body, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{StatusCode: resp.StatusCode, Detail: resp.Detail()}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s failed: %w", path, err)
	}
	return nil
}
