// Package remote is the HTTP client for the pad server API. It satisfies
// session.Store so a client session can reconcile against a live server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pad-sync-server/internal/domain"
	"pad-sync-server/internal/session"
	"pad-sync-server/pkg/response"
)

var _ session.Store = (*Client)(nil)

const (
	apiPrefix        = "/api/v1"
	defaultUserAgent = "padctl/1.0"
	requestTimeout   = 15 * time.Second
)

// Client talks to the pad server HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for server, which may omit the scheme.
func NewClient(server string, opts ...Option) (*Client, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return nil, fmt.Errorf("server address is empty")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}

	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL is the server root the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) CreateRoom(ctx context.Context, req *domain.CreateRoomRequest) (*domain.Room, error) {
	return call[*domain.Room](ctx, c, http.MethodPost, roomPath(""), req, "")
}

func (c *Client) GetRoom(ctx context.Context, key string) (*domain.Room, error) {
	return call[*domain.Room](ctx, c, http.MethodGet, roomPath(key), nil, "")
}

func (c *Client) UpdateRoom(ctx context.Context, key string, req *domain.UpdateRoomRequest) (*domain.Room, error) {
	return call[*domain.Room](ctx, c, http.MethodPut, roomPath(key), req, "")
}

func (c *Client) DeleteRoom(ctx context.Context, key string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, roomPath(key), nil, "")
	return err
}

func (c *Client) ListItems(ctx context.Context, key string) ([]*domain.Item, error) {
	return call[[]*domain.Item](ctx, c, http.MethodGet, roomPath(key, "items"), nil, "")
}

func (c *Client) AddItem(ctx context.Context, key string, draft *domain.CreateItemRequest) (*domain.Item, error) {
	return call[*domain.Item](ctx, c, http.MethodPost, roomPath(key, "items"), draft, "")
}

// AddItemsBatch creates drafts in one request. The server answers with one
// item per draft in draft order; anything else is reported as an error.
func (c *Client) AddItemsBatch(ctx context.Context, key string, drafts []*domain.CreateItemRequest) ([]*domain.Item, error) {
	resp, err := call[*domain.BatchCreateItemsResponse](ctx, c, http.MethodPost, roomPath(key, "items", "batch"),
		&domain.BatchCreateItemsRequest{Items: drafts}, "")
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Items) != len(drafts) {
		got := 0
		if resp != nil {
			got = len(resp.Items)
		}
		return nil, fmt.Errorf("batch create returned %d items for %d drafts", got, len(drafts))
	}
	return resp.Items, nil
}

func (c *Client) UpdateItem(ctx context.Context, key, id string, patch *domain.UpdateItemRequest) (*domain.Item, error) {
	return call[*domain.Item](ctx, c, http.MethodPut, roomPath(key, "items", id), patch, "")
}

func (c *Client) RemoveItem(ctx context.Context, key, id string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, roomPath(key, "items", id), nil, "")
	return err
}

func (c *Client) ClearRoom(ctx context.Context, key string) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodPost, roomPath(key, "clear"), nil, "")
	return err
}

func (c *Client) GetStats(ctx context.Context) (*domain.Stats, error) {
	return call[*domain.Stats](ctx, c, http.MethodGet, apiPrefix+"/stats", nil, "")
}

// Cleanup triggers an expired-room pass. token must be an admin JWT.
func (c *Client) Cleanup(ctx context.Context, token string) (*domain.CleanupResponse, error) {
	return call[*domain.CleanupResponse](ctx, c, http.MethodPost, apiPrefix+"/cleanup", nil, token)
}

func roomPath(key string, parts ...string) string {
	p := apiPrefix + "/rooms"
	if key != "" {
		p += "/" + key
	}
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func call[T any](ctx context.Context, c *Client, method, path string, body any, token string) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: c.baseURL.Path + path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, _, err := response.Decode[T](resp.StatusCode, resp.Body)
	if err != nil {
		return zero, mapError(err)
	}
	return data, nil
}

// StatusError is a failed API call. It matches domain.ErrNotFound and
// domain.ErrRoomExists through errors.Is when the status says so.
type StatusError struct {
	*response.APIError
}

func (e *StatusError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == domain.ErrNotFound
	case http.StatusConflict:
		return target == domain.ErrRoomExists
	}
	return false
}

func (e *StatusError) Unwrap() error {
	return e.APIError
}

func mapError(err error) error {
	var apiErr *response.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusBadRequest {
		return &domain.ValidationError{Message: apiErr.Message}
	}
	return &StatusError{APIError: apiErr}
}
