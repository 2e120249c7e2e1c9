// Package api is the HTTP client for the /api/variables collection.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dopejs/varman/internal/variable"
)

// Header names identifying the caller to the backend.
const (
	HeaderOrgID  = "X-Org-Id"
	HeaderUserID = "X-User-Id"
)

const defaultTimeout = 10 * time.Second

// Config identifies the backend and the caller.
type Config struct {
	BaseURL string
	OrgID   string
	UserID  string
	Timeout time.Duration
}

// Client talks to the variables REST endpoints.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a client. A nil httpClient gets one with cfg.Timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, config: cfg}
}

// updateRequest is the PATCH body.
type updateRequest struct {
	Name        string `json:"name"`
	UID         string `json:"uid"`
	Description string `json:"description"`
	Value       string `json:"value"`
	Type        string `json:"type"`
}

// List fetches the collection and keeps only the variables owned by scopeID.
// The scope id is also sent as a query parameter so a capable backend can
// filter first; the client filters regardless. An empty scopeID keeps all.
func (c *Client) List(ctx context.Context, scopeID string) ([]variable.Variable, error) {
	q := url.Values{}
	if scopeID != "" {
		q.Set("scope_id", scopeID)
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/variables", q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var vars []variable.Variable
	if err := json.NewDecoder(resp.Body).Decode(&vars); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	if scopeID == "" {
		return vars, nil
	}
	return variable.FilterByScopeID(vars, scopeID), nil
}

// Create sends v's name, description, value, type and scope as query
// parameters and returns the stored record. The name is sent as given.
func (c *Client) Create(ctx context.Context, v variable.Variable) (variable.Variable, error) {
	q := url.Values{}
	q.Set("name", v.Name)
	q.Set("description", v.Description)
	q.Set("value", v.Value)
	if v.Type != "" {
		q.Set("type", v.Type)
	}
	if v.Scope != "" {
		q.Set("scope", v.Scope)
	}
	if v.ScopeID != "" {
		q.Set("scope_id", v.ScopeID)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/variables", q, nil)
	if err != nil {
		return variable.Variable{}, err
	}
	defer resp.Body.Close()

	var created variable.Variable
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return variable.Variable{}, fmt.Errorf("failed to decode created variable: %w", err)
	}
	return created, nil
}

// Update patches the record with v.UID.
func (c *Client) Update(ctx context.Context, v variable.Variable) error {
	if v.UID == "" {
		return fmt.Errorf("uid is required")
	}
	body, err := json.Marshal(updateRequest{
		Name:        v.Name,
		UID:         v.UID,
		Description: v.Description,
		Value:       v.Value,
		Type:        v.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPatch, "/api/variables/uid/"+url.PathEscape(v.UID), nil, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete removes the record with uid.
func (c *Client) Delete(ctx context.Context, uid string) error {
	if uid == "" {
		return fmt.Errorf("uid is required")
	}
	resp, err := c.do(ctx, http.MethodDelete, "/api/variables/uid/"+url.PathEscape(uid), nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do sends the request and turns non-2xx responses into *APIError. On
// success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.OrgID != "" {
		req.Header.Set(HeaderOrgID, c.config.OrgID)
	}
	if c.config.UserID != "" {
		req.Header.Set(HeaderUserID, c.config.UserID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}
	return resp, nil
}

// errorFromResponse reads the {"error": "..."} body the backend writes.
func errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(data, &payload); err == nil {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Msg: msg}
}
