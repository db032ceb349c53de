package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int    `json:"-"`
	Title   string `json:"error"`
	Message string `json:"message"`
	Body    string `json:"-"`
}

func (e *apiError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, strings.TrimSpace(e.Body))
	}

	msg := fmt.Sprintf("HTTP %d: %s", e.Status, e.Title)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// client talks to the ledger HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type requestOption func(*http.Request)

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set("Idempotency-Key", key)
		}
	}
}

// do sends a request and returns the response body and headers. body may be
// nil, an io.Reader, or a value to encode as JSON.
func (c *client) do(ctx context.Context, method, path string, body any, opts ...requestOption) ([]byte, http.Header, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode, Body: string(data)}
		_ = json.Unmarshal(data, apiErr)
		return data, resp.Header, apiErr
	}

	return data, resp.Header, nil
}
