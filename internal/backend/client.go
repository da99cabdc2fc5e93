package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrNotFound     = errors.New("backend: not found")
	ErrUnavailable  = errors.New("backend: unavailable")

	// ErrResponseTooLarge is wrapped in ErrUnavailable when a body exceeds the client's cap.
	ErrResponseTooLarge = errors.New("backend: response too large")
)

const defaultMaxBody = 8 << 20

// StatusError is returned for any non-2xx answer. 401/403 unwrap to ErrUnauthorized,
// 404 to ErrNotFound.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Client talks to the storefront REST API under {baseURL}/api.
type Client struct {
	baseURL string
	http    *http.Client
	maxBody int64
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		maxBody: defaultMaxBody,
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	jwt         string
	body        io.Reader
	contentType string
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return bytes.NewReader(b), nil
}

// do sends the request and decodes a JSON answer into out (nil discards the body).
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + "/api" + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}
	if r.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+r.jwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrUnavailable, r.path, err)
	}
	if int64(len(body)) > c.maxBody {
		return fmt.Errorf("%w: %w: %s over %d bytes", ErrUnavailable, ErrResponseTooLarge, r.path, c.maxBody)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", ErrUnavailable, &StatusError{Status: resp.StatusCode, Message: message(body)})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Status: resp.StatusCode, Message: message(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", r.path, err)
	}
	return nil
}

// message prefers the backend's {"message": "..."} field and falls back to the raw body.
func message(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if m.Message != "" {
			return m.Message
		}
		if m.Error != "" {
			return m.Error
		}
	}
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return string(bytes.TrimSpace(body))
}
