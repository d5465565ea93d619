// Package client is the Go consumer of the admin API: a thin HTTP client,
// per-resource action runners that refetch the authoritative document
// after every successful mutation, an in-flight operation registry, and a
// local list view that reconciles optimistic reordering against refetches.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// API performs requests against the admin backend. Header carries the
// session cookie; BaseURL has no trailing slash.
type API struct {
	BaseURL string
	HTTP    *http.Client
	Header  http.Header
}

// NewAPI creates an API with the default HTTP client.
func NewAPI(baseURL string) *API {
	return &API{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// Get fetches path and decodes the JSON response into out. prefix labels
// errors for the user when the server sends no message of its own.
func (a *API) Get(ctx context.Context, path, prefix string, out any) error {
	return a.do(ctx, http.MethodGet, path, prefix, nil, out)
}

// Post sends body as JSON and decodes the response into out. out may be
// nil; an empty or non-JSON success body is not an error.
func (a *API) Post(ctx context.Context, path, prefix string, body, out any) error {
	return a.do(ctx, http.MethodPost, path, prefix, body, out)
}

func (a *API) do(ctx context.Context, method, path, prefix string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	for k, vs := range a.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return extractError(prefix, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	// A success body that is not JSON counts as an empty result.
	if err := json.Unmarshal(raw, out); err != nil {
		return nil
	}
	return nil
}

// extractError prefers the server's error field; when the body carries
// none the status code stands in for it.
func extractError(prefix string, status int, raw []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%s: %s", prefix, envelope.Error)
	}
	return fmt.Errorf("%s: %d", prefix, status)
}
