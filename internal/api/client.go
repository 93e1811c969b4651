// Package api is the HTTP client for the TaskPilot backend. It only speaks
// the backend's JSON contract; it defines none of the semantics itself.
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
)

const apiPrefix = "/api/v1"

// ErrUnauthorized is returned for 401 responses so callers can drop a stale
// token and prompt for login instead of showing a raw server error.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the backend, carrying the server's
// message when one was provided.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsSchemaError reports whether err is the backend's "invalid schema" export
// failure: the selected Notion database is missing required columns. Callers
// should send the user to settings rather than retry.
func IsSchemaError(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return strings.Contains(strings.ToLower(ae.Message), "invalid schema")
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// SetToken swaps the bearer token (after login/verify).
func (c *Client) SetToken(token string) { c.token = token }

// do issues one JSON request. A nil out discards the response body; a non-JSON
// or empty body with a non-nil out is treated as "no data" rather than an error,
// matching the backend's habit of returning 200 with an empty body on writes.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.send(req, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("taskpilot api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	// The backend usually wraps errors as {"message": ...} or {"error": ...}.
	var payload struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(b, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Err
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
