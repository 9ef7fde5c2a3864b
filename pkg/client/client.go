// Package client is the Go SDK for the data API. It exposes the documented
// calling conventions: filtered list queries with opaque cursor pagination,
// get queries with selection sets, per-call auth-mode overrides, and
// cancellable request handles.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthMode selects how a request is authenticated. The zero value uses the
// client default (or server-side inference from the supplied credentials).
type AuthMode string

const (
	AuthModeAPIKey   AuthMode = "apiKey"
	AuthModeUserPool AuthMode = "userPool"
)

// Client talks to a data API endpoint. It is safe for concurrent use.
type Client struct {
	baseURL  string
	httpc    *http.Client
	apiKey   string
	token    string
	authMode AuthMode
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithAPIKey supplies the static api key for apiKey-mode requests.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithToken supplies the user-pool bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAuthMode sets the default auth mode for all requests. Individual calls
// may still override it.
func WithAuthMode(mode AuthMode) Option {
	return func(c *Client) { c.authMode = mode }
}

// New creates a Client for the given endpoint base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// ErrorDescriptor is one failure inside an otherwise successful list
// response. Errors and Data are not mutually exclusive.
type ErrorDescriptor struct {
	Message   string `json:"message"`
	ErrorType string `json:"errorType"`
	RecordID  string `json:"recordId,omitempty"`
}

// ListOptions configure a list query. The zero value lists the first page
// with the server default limit.
type ListOptions struct {
	Filter    *Filter
	Limit     int
	NextToken string
	AuthMode  AuthMode
}

// ListResult is one page of records. NextToken is nil when the listing is
// exhausted; pass it back verbatim to fetch the next page. A page may hold
// fewer than Limit records even when more pages exist.
type ListResult struct {
	Data      []map[string]any  `json:"data"`
	NextToken *string           `json:"nextToken"`
	Errors    []ErrorDescriptor `json:"errors,omitempty"`
}

type listRequestBody struct {
	Filter    *Filter `json:"filter,omitempty"`
	Limit     int     `json:"limit,omitempty"`
	NextToken string  `json:"nextToken,omitempty"`
	AuthMode  string  `json:"authMode,omitempty"`
}

// List runs a single list query against a model.
func (c *Client) List(ctx context.Context, model string, opts ListOptions) (*ListResult, error) {
	body := listRequestBody{
		Filter:    opts.Filter,
		Limit:     opts.Limit,
		NextToken: opts.NextToken,
		AuthMode:  string(opts.AuthMode),
	}
	var out ListResult
	if err := c.do(ctx, http.MethodPost, "/models/"+model+"/list", nil, body, &out, opts.AuthMode); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPages walks nextToken until the listing is exhausted or fn returns an
// error, invoking fn once per page.
func (c *Client) ListPages(ctx context.Context, model string, opts ListOptions, fn func(*ListResult) error) error {
	for {
		page, err := c.List(ctx, model, opts)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if page.NextToken == nil {
			return nil
		}
		opts.NextToken = *page.NextToken
	}
}

// GetOptions configure a get query.
type GetOptions struct {
	// SelectionSet restricts the returned fields to the given dot-notated
	// paths; a trailing ".*" selects all fields of a relation. Empty means
	// all scalar fields.
	SelectionSet []string
	AuthMode     AuthMode
}

// Get fetches one record by primary key.
func (c *Client) Get(ctx context.Context, model, id string, opts GetOptions) (map[string]any, error) {
	q := url.Values{}
	if len(opts.SelectionSet) > 0 {
		q.Set("select", strings.Join(opts.SelectionSet, ","))
	}
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/models/"+model+"/"+id, q, nil, &out, opts.AuthMode); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a record and returns the stored row.
func (c *Client) Create(ctx context.Context, model string, fields map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, "/models/"+model, nil, fields, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies field changes to a record and returns the stored row.
func (c *Client) Update(ctx context.Context, model, id string, fields map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPatch, "/models/"+model+"/"+id, nil, fields, &out, ""); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, model, id string) error {
	return c.do(ctx, http.MethodDelete, "/models/"+model+"/"+id, nil, nil, nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, mode AuthMode) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if mode == "" {
		mode = c.authMode
	}
	if mode != "" {
		req.Header.Set("X-Auth-Mode", string(mode))
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Surface an explicit Cancel as the documented cancellation error
		// rather than the transport's wrapping of context.Canceled.
		if ce := cancelCause(ctx); ce != nil {
			return ce
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// A Cancel can also land while the body is still streaming in.
		if ce := cancelCause(ctx); ce != nil {
			return ce
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// cancelCause returns the CancelError carried by the context, if the request
// was aborted through Operation.Cancel.
func cancelCause(ctx context.Context) *CancelError {
	var ce *CancelError
	if errors.As(context.Cause(ctx), &ce) {
		return ce
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: resp.Status}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.RequestID = envelope.RequestID
	}
	return apiErr
}
