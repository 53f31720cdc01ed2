// Package client is a Go client for the surrealtodo HTTP API and its
// websocket channel.
//
// [Client] mirrors the server's routes with typed methods over
// [github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models] values.
// Failed requests return an [*APIError] carrying the status code and the
// server's reason code, so callers can branch with [IsReason].
//
// Basic usage:
//
//	c := client.NewClient("http://localhost:8080")
//	c.SetAuthToken(token) // or c.SetUserID(id) against a dev server
//
//	list, err := c.CreateList(ctx)
//	title := "Groceries"
//	list, err = c.UpdateList(ctx, list.ID, models.ListPatch{Title: &title})
//
// Realtime updates arrive over a [Stream]:
//
//	s, err := c.Dial(ctx, codec.NameCBOR)
//	defer s.Close()
//	joined, err := s.Join(ctx, userID)
//	msg, err := s.Next(ctx)
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
	"time"

	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/surrealtodo/pkg/models"
)

// Client provides typed access to the surrealtodo REST API.
// Configure it before sharing it between goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
	userID     string
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8080",
// without a trailing slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the bearer token sent with every request.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// SetUserID identifies the caller to a server running without a token
// secret.
func (c *Client) SetUserID(userID string) {
	c.userID = userID
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Reason  string `json:"reason"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d reason=%s: %s", e.Status, e.Reason, e.Message)
}

// IsReason reports whether err is an APIError with the given reason code.
func IsReason(err error, reason string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason == reason
}

func (c *Client) setIdentity(h http.Header) {
	if c.authToken != "" {
		h.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.userID != "" {
		h.Set(auth.DevUserHeader, c.userID)
	}
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.setIdentity(req.Header)

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into target, or the error body
// into an APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = string(body)
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// Health returns the server's health report.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var result map[string]any
	if err := c.call(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func listPath(listID string) string {
	return "/api/lists/" + url.PathEscape(listID)
}

// CreateList creates an empty list owned by the caller.
func (c *Client) CreateList(ctx context.Context) (*models.List, error) {
	var result models.List
	if err := c.call(ctx, http.MethodPost, "/api/lists", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetList retrieves a list by id.
func (c *Client) GetList(ctx context.Context, listID string) (*models.List, error) {
	var result models.List
	if err := c.call(ctx, http.MethodGet, listPath(listID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateList applies patch and returns the saved list.
func (c *Client) UpdateList(ctx context.Context, listID string, patch models.ListPatch) (*models.List, error) {
	var result models.List
	if err := c.call(ctx, http.MethodPatch, listPath(listID), patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteList deletes a list the caller owns.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.call(ctx, http.MethodDelete, listPath(listID), nil, nil)
}

// SetFrozen freezes or unfreezes a list the caller owns.
func (c *Client) SetFrozen(ctx context.Context, listID string, frozen bool) (*models.List, error) {
	var result models.List
	body := map[string]bool{"frozen": frozen}
	if err := c.call(ctx, http.MethodPut, listPath(listID)+"/frozen", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ShareList adds the user registered under email to the list.
func (c *Client) ShareList(ctx context.Context, listID, email string) (*models.List, error) {
	var result models.List
	body := map[string]string{"email": email}
	if err := c.call(ctx, http.MethodPost, listPath(listID)+"/share", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListsForUser returns the lists userID participates in. Servers only answer
// for the caller.
func (c *Client) ListsForUser(ctx context.Context, userID string) ([]*models.List, error) {
	var result []*models.List
	path := fmt.Sprintf("/api/users/%s/lists", url.PathEscape(userID))
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}
