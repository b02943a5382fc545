// Package memgate is a client for the memgate memory service API.
package memgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the fixed per-request timeout of a bridge client.
const DefaultTimeout = 10 * time.Second

// Client talks to one memgate deployment on behalf of one tenant
// (organisation + agent). All tenancy headers are attached at build time,
// so a client can be reused for every call of a run.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	headers http.Header
}

// NewClient builds a client from resolved credentials. The base URL loses
// any trailing slash; extra headers are applied in order, entries with an
// empty name or value are skipped, so a later non-empty entry overrides an
// earlier one.
func NewClient(creds Credentials) *Client {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+creds.SharedSecret)
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Org-Id", creds.OrgID)
	headers.Set("X-Agent-Id", creds.AgentID)
	for _, h := range creds.ExtraHeaders {
		if h.Name == "" || h.Value == "" {
			continue
		}
		headers.Set(h.Name, h.Value)
	}

	return &Client{
		BaseURL:    strings.TrimSuffix(creds.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		headers:    headers,
	}
}

// doRequest performs an HTTP request and decodes the JSON response into
// out (when non-nil). Non-2xx responses and transport failures are
// returned as *RemoteError.
func (c *Client) doRequest(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	for name, values := range c.headers {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errorData, _ := io.ReadAll(resp.Body)
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(errorData)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &RemoteError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// List returns up to limit items stored for the tenant, in the service's
// listing order. Soft-deleted items are included only when includeDeleted
// is set, and even then the service may honor the flag loosely.
func (c *Client) List(ctx context.Context, limit int, includeDeleted bool) ([]MemoryItem, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("include_deleted", strconv.FormatBool(includeDeleted))

	var result struct {
		Items []MemoryItem `json:"items"`
	}
	if err := c.doRequest(ctx, "list", http.MethodGet, "/api/v1/mem/list", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Add stores one text for the tenant and returns the created items.
func (c *Client) Add(ctx context.Context, req AddRequest) ([]MemoryItem, error) {
	var result struct {
		Items []MemoryItem `json:"items"`
	}
	if err := c.doRequest(ctx, "add", http.MethodPost, "/api/v1/mem/add", nil, req, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// DeleteBatch deletes the given items in one call. With hard unset the
// items are soft-deleted and stay recoverable on the service side.
func (c *Client) DeleteBatch(ctx context.Context, ids []string, hard bool) error {
	body := struct {
		IDs  []string `json:"ids"`
		Hard bool     `json:"hard"`
	}{IDs: ids, Hard: hard}
	return c.doRequest(ctx, "delete batch", http.MethodPost, "/api/v1/mem/delete/batch", nil, body, nil)
}

// Search runs semantic search over the tenant's memories. Ranking is
// entirely the service's business.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]MemoryHit, error) {
	query := url.Values{}
	query.Set("q", q.Query)
	if q.UserID != "" {
		query.Set("user_id", q.UserID)
	}
	if q.K > 0 {
		query.Set("k", strconv.Itoa(q.K))
	}
	if q.Scope != "" {
		query.Set("scope", q.Scope)
	}
	for _, tag := range q.Tags {
		query.Add("tags", tag)
	}

	var result struct {
		Hits []MemoryHit `json:"hits"`
	}
	if err := c.doRequest(ctx, "search", http.MethodGet, "/api/v1/mem/search", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Hits, nil
}

// SearchText runs a plain keyword filter over stored texts.
func (c *Client) SearchText(ctx context.Context, q string, limit int, includeDeleted bool) ([]MemoryItem, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("limit", strconv.Itoa(limit))
	query.Set("include_deleted", strconv.FormatBool(includeDeleted))

	var result struct {
		Items []MemoryItem `json:"items"`
	}
	if err := c.doRequest(ctx, "search text", http.MethodGet, "/api/v1/mem/search/text", query, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Open fetches items by identifier.
func (c *Client) Open(ctx context.Context, ids []string) ([]MemoryItem, error) {
	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	var result struct {
		Items []MemoryItem `json:"items"`
	}
	if err := c.doRequest(ctx, "open", http.MethodPost, "/api/v1/mem/open", nil, body, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Update patches a stored item and returns its new representation.
func (c *Client) Update(ctx context.Context, id string, req UpdateRequest) (MemoryItem, error) {
	var item MemoryItem
	if err := c.doRequest(ctx, "update", http.MethodPatch, "/api/v1/mem/"+url.PathEscape(id), nil, req, &item); err != nil {
		return MemoryItem{}, err
	}
	return item, nil
}

// Delete removes a single item.
func (c *Client) Delete(ctx context.Context, id string, hard bool) error {
	query := url.Values{}
	query.Set("hard", strconv.FormatBool(hard))
	return c.doRequest(ctx, "delete", http.MethodDelete, "/api/v1/mem/"+url.PathEscape(id), query, nil, nil)
}
