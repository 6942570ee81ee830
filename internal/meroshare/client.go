// Package meroshare is the HTTP client for the MeroShare web backend.
// It translates human-meaningful identifiers (participant code, scrip
// symbol) into the machine identifiers the platform requires, and fetches
// application status for submitted forms.
//
// All calls carry the client's fixed timeout and fail fast: retry policy
// belongs to the caller, since different callers need different pacing.
package meroshare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiError is a non-2xx backend response.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("meroshare API error: status %d, body: %s", e.StatusCode, e.Body)
}

// isStatusCode reports whether err is an apiError with the given HTTP status.
func isStatusCode(err error, code int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client is a client for the MeroShare backend API.
type Client struct {
	baseURL     string
	frontendURL string
	httpClient  *http.Client
}

// NewClient creates a MeroShare API client. The frontend URL is sent as the
// Referer header; the backend rejects requests without it.
func NewClient(baseURL, frontendURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:     baseURL,
		frontendURL: frontendURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do makes one request to the backend. A non-empty token is attached as the
// Authorization header. The response body is decoded into target when
// target is non-nil.
func (c *Client) do(ctx context.Context, method, url, token string, body, target any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", c.frontendURL)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("unmarshaling response body: %w", err)
		}
	}
	return nil
}
