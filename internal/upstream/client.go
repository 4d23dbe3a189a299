// Package upstream issues requests against the data/trading API and hands back
// its JSON bodies untouched.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/data-api-gateway/pkg/httpclient"
)

// Timeout bounds every upstream call.
const Timeout = 60 * time.Second

// Request describes one upstream call relative to the base address.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   any
}

// Client forwards requests to the upstream API.
type Client struct {
	base  string
	token string
	http  httpclient.Client
}

// NewClient builds a Client for base. A nil transport gets a pooled resty client.
func NewClient(base, token string, transport httpclient.Client) *Client {
	if transport == nil {
		transport = httpclient.NewRestyClient(Timeout)
	}
	return &Client{
		base:  strings.TrimRight(strings.TrimSpace(base), "/"),
		token: token,
		http:  transport,
	}
}

// Base returns the normalized base address.
func (c *Client) Base() string { return c.base }

// Do issues req and returns the raw JSON body on success.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("upstream client is not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	full := c.base + req.Path
	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  req.Method,
		URL:     full,
		Headers: c.headers(),
		Query:   req.Query,
		Body:    req.Body,
	})
	if err != nil {
		return nil, &Error{Method: req.Method, URL: full, Err: err}
	}

	body := resp.Body()
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &Error{
			Method:     req.Method,
			URL:        full,
			StatusCode: resp.StatusCode(),
			Body:       readBodySnippet(body),
		}
	}
	if !json.Valid(body) {
		return nil, &Error{
			Method:     req.Method,
			URL:        full,
			StatusCode: resp.StatusCode(),
			Body:       readBodySnippet(body),
			Err:        fmt.Errorf("response body is not valid JSON"),
		}
	}

	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out, nil
}

func (c *Client) headers() map[string]string {
	if c.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.token}
}

// Segment escapes a caller-supplied identifier for use as one path segment.
func Segment(id string) string {
	return url.PathEscape(id)
}
