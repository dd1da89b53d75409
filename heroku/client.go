// Package heroku is a minimal client for the Heroku Platform API v3,
// covering the app and build endpoints forkgate provisions and reclaims with.
package heroku

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultURL is the public Platform API endpoint.
	DefaultURL = "https://api.heroku.com"

	acceptHeader = "application/vnd.heroku+json; version=3"
	maxErrorBody = 64 << 10
)

// Client talks to the Platform API with a bearer API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for baseURL (DefaultURL when empty). Requests
// are traced through otelhttp and bounded by timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateApp creates a new app.
func (c *Client) CreateApp(ctx context.Context, opts AppCreateOpts) (*App, error) {
	var app App
	if _, err := c.do(ctx, http.MethodPost, "/apps", nil, opts, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateConfigVars merges vars into the app's config vars.
func (c *Client) UpdateConfigVars(ctx context.Context, app string, vars map[string]string) error {
	_, err := c.do(ctx, http.MethodPatch, "/apps/"+url.PathEscape(app)+"/config-vars", nil, vars, nil)
	return err
}

// CreateBuild starts a build of app from a source archive.
func (c *Client) CreateBuild(ctx context.Context, app string, opts BuildCreateOpts) (*Build, error) {
	var b Build
	if _, err := c.do(ctx, http.MethodPost, "/apps/"+url.PathEscape(app)+"/builds", nil, opts, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteApp destroys an app.
func (c *Client) DeleteApp(ctx context.Context, app string) error {
	_, err := c.do(ctx, http.MethodDelete, "/apps/"+url.PathEscape(app), nil, nil, nil)
	return err
}

// ListApps returns every app visible to the API key, following Next-Range
// pagination until the listing is complete.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var all []App
	rangeHeader := ""
	for {
		var page []App
		h := http.Header{}
		if rangeHeader != "" {
			h.Set("Range", rangeHeader)
		}
		resp, err := c.do(ctx, http.MethodGet, "/apps", h, nil, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next := resp.Header.Get("Next-Range")
		if resp.StatusCode != http.StatusPartialContent || next == "" || next == rangeHeader {
			return all, nil
		}
		rangeHeader = next
	}
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, apiErr)
		return resp, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}
