// Package client is a small REST client for the todo API.
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
	"strconv"
	"strings"
	"time"

	"todo-notes/internal/models"
)

var (
	ErrNotFound   = errors.New("todo not found")
	ErrValidation = errors.New("todo rejected")
)

// APIError carries a non-2xx response. It unwraps to ErrNotFound or
// ErrValidation where the status maps onto one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrValidation
	}
	return nil
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:5000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(id string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/api/todos"
	u.RawPath = c.baseURL.EscapedPath() + "/api/todos"
	if id != "" {
		u.Path += "/" + id
		u.RawPath += "/" + url.PathEscape(id)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) List(ctx context.Context, q models.ListQuery) (models.TodoPage, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}

	var page models.TodoPage
	if err := c.do(ctx, http.MethodGet, c.endpoint("", query), nil, &page); err != nil {
		return models.TodoPage{}, err
	}
	if page.Todos == nil {
		page.Todos = []models.Todo{}
	}
	return page, nil
}

func (c *Client) Get(ctx context.Context, id string) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodGet, c.endpoint(id, nil), nil, &todo)
	return todo, err
}

func (c *Client) Create(ctx context.Context, input models.TodoInput) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodPost, c.endpoint("", nil), input, &todo)
	return todo, err
}

func (c *Client) Update(ctx context.Context, id string, patch models.TodoPatch) (models.Todo, error) {
	var todo models.Todo
	err := c.do(ctx, http.MethodPut, c.endpoint(id, nil), patch, &todo)
	return todo, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(id, nil), nil, nil)
}
