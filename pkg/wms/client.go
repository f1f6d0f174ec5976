// Package wms is a minimal client for the OGC Web Map Service protocol.
//
// A Client is bound to one service endpoint. Each call builds the request URL,
// performs a single GET and blocks until the response arrives.
package wms

import (
	"context"
	"fmt"
	"sync"

	"github.com/samvad-hq/go-wms/pkg/httpclient"
)

// Response is the raw HTTP response handed to callers untouched.
type Response = httpclient.Response

// Handler receives the response of a successful call.
type Handler func(Response)

// Result carries the outcome of a call started with Go.
type Result struct {
	Response Response
	Err      error
}

// Client issues WMS requests against a single base URL.
// Calls through one Client are serialized; only one request is in flight at a time.
type Client struct {
	baseURL string
	http    httpclient.Client
	headers map[string]string
	log     Logger

	mu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(client httpclient.Client) Option {
	return func(c *Client) { c.http = client }
}

// WithHeaders sets headers sent with every request. None are sent by default.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			c.headers = nil
			return
		}
		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for baseURL. The URL must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := parseBase(baseURL); err != nil {
		return nil, err
	}

	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(0)
	}
	c.log = ensureLogger(c.log)
	return c, nil
}

// BaseURL returns the endpoint the client was created for.
func (c *Client) BaseURL() string { return c.baseURL }

// GetCapabilities requests the service metadata and passes the response to handler.
func (c *Client) GetCapabilities(ctx context.Context, handler Handler) error {
	return c.Dispatch(ctx, RequestCapabilities, handler)
}

// GetMap requests a map and passes the response to handler.
func (c *Client) GetMap(ctx context.Context, handler Handler) error {
	return c.Dispatch(ctx, RequestMap, handler)
}

// Dispatch performs one GET for kind and invokes handler with the response before
// returning. The handler is not called when the request fails. HTTP error statuses
// are not failures. The handler runs while the Client is locked, so it must not
// call back into the same Client.
func (c *Client) Dispatch(ctx context.Context, kind RequestKind, handler Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.do(ctx, kind)
	if err != nil {
		return err
	}
	if handler != nil {
		handler(resp)
	}
	return nil
}

// Do performs one GET for kind and returns the response.
func (c *Client) Do(ctx context.Context, kind RequestKind) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.do(ctx, kind)
}

// Go starts the call on its own goroutine. The channel yields exactly one Result.
func (c *Client) Go(ctx context.Context, kind RequestKind) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		resp, err := c.Do(ctx, kind)
		out <- Result{Response: resp, Err: err}
	}()
	return out
}

// FetchCapabilities requests the service metadata and decodes it.
func (c *Client) FetchCapabilities(ctx context.Context) (Capabilities, error) {
	resp, err := c.Do(ctx, RequestCapabilities)
	if err != nil {
		return Capabilities{}, err
	}
	return ParseCapabilities(resp)
}

func (c *Client) do(ctx context.Context, kind RequestKind) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	u, err := BuildURL(c.baseURL, kind)
	if err != nil {
		return nil, err
	}
	target := u.String()

	c.log.DebugObj("wms request dispatched", "wms_request", map[string]any{
		"request": kind.String(),
		"url":     target,
	})

	resp, err := c.http.Get(ctx, target, c.headers)
	if err != nil {
		c.log.WarnObj("wms request failed", "wms_error", map[string]any{
			"request": kind.String(),
			"url":     target,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, target, err)
	}

	c.log.DebugObj("wms response received", "wms_response", map[string]any{
		"request":     kind.String(),
		"status_code": resp.StatusCode(),
		"bytes":       len(resp.Body()),
	})
	return resp, nil
}
