// Package client talks to a remote tada server. *Client satisfies
// order.Todos, so the CLI and TUI can run against it unchanged.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
)

// Client is an HTTP implementation of order.Todos.
type Client struct {
	base  string
	token string
	http  *http.Client
}

var _ order.Todos = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health calls GET /healthz. The server answers it without a token, so a
// failure means the server is unreachable or not a tada server.
func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var h api.Health
	err := c.do(ctx, "health", http.MethodGet, api.PathHealth, nil, &h)
	return h, err
}

func (c *Client) Append(ctx context.Context, d model.Draft) (model.Item, error) {
	var it model.Item
	body := api.CreateRequest{Title: &d.Title, Description: &d.Description}
	err := c.do(ctx, "append", http.MethodPost, api.PathTodos, body, &it)
	return it, err
}

func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, "list", http.MethodGet, api.PathTodos, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Edit(ctx context.Context, id string, p model.Patch) (model.Item, error) {
	var it model.Item
	err := c.do(ctx, "edit", http.MethodPatch, itemPath(id), p, &it)
	return it, err
}

func (c *Client) Remove(ctx context.Context, id string) error {
	var out api.DeleteResponse
	if err := c.do(ctx, "remove", http.MethodDelete, itemPath(id), nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return &order.StorageError{Op: "remove", Err: errors.New("server reported failure")}
	}
	return nil
}

func (c *Client) Move(ctx context.Context, id string, target int) ([]model.Item, error) {
	var items []model.Item
	body := api.ReorderRequest{Position: &target}
	if err := c.do(ctx, "move", http.MethodPut, itemPath(id)+"/position", body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func itemPath(id string) string {
	return api.PathTodos + "/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &order.StorageError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &order.StorageError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return decodeError(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &order.StorageError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// StatusError is returned for failures that do not map onto a domain error,
// such as 401 or an unexpected status.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

// decodeError turns an error envelope back into the error the server mapped.
func decodeError(op string, status int, raw []byte) error {
	var env api.ErrorResponse
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = http.StatusText(status)
		}
		if status >= 500 {
			return &order.StorageError{Op: op, Err: &StatusError{Status: status, Message: msg}}
		}
		return &StatusError{Status: status, Message: msg}
	}

	b := env.Error
	switch b.Code {
	case api.CodeValidation:
		return &order.ValidationError{Field: b.Field, Reason: b.Message}
	case api.CodeNotFound:
		msg := strings.TrimPrefix(b.Message, order.ErrNotFound.Error()+": ")
		return fmt.Errorf("%w: %s", order.ErrNotFound, msg)
	case api.CodeStorage:
		return &order.StorageError{Op: op, Err: errors.New(b.Message)}
	}
	return &StatusError{Status: status, Code: b.Code, Message: b.Message}
}
