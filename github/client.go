// Package github reads repository metadata from the GitHub REST API and
// decides whether an account holds a usable fork of the upstream project.
package github

import (
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
	// DefaultURL is the public REST API endpoint.
	DefaultURL = "https://api.github.com"

	acceptHeader = "application/vnd.github.v3+json"
)

// Repository is the subset of the repository resource the verifier needs.
type Repository struct {
	Name     string      `json:"name"`
	FullName string      `json:"full_name"`
	Fork     bool        `json:"fork"`
	Parent   *Repository `json:"parent,omitempty"`
}

// StatusError is a non-2xx REST response.
type StatusError struct {
	Method string
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Client issues unauthenticated or token-authenticated REST calls.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
}

// NewClient returns a client for baseURL (DefaultURL when empty). An empty
// token sends no Authorization header.
func NewClient(baseURL, token, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetRepo fetches /repos/{owner}/{repo}.
func (c *Client) GetRepo(ctx context.Context, owner, repo string) (*Repository, error) {
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}
	var r Repository
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}

// ContentStatus fetches /repos/{owner}/{repo}/contents/{path} and returns
// the response status without decoding the body.
func (c *Client) ContentStatus(ctx context.Context, owner, repo, filePath string) (int, error) {
	segments := strings.Split(strings.Trim(filePath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + strings.Join(segments, "/")
	resp, err := c.get(ctx, path)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return resp, nil
}
