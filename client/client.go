// Package client talks to a remote runlens name index over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hayeah/runlens/names"
	"github.com/hayeah/runlens/store"
)

const (
	defaultUserAgent = "runlens/0.1"
	requestTimeout   = 10 * time.Second
	defaultRetryMax  = 2
)

// Client is a names.Source backed by the /api/names endpoint.
type Client struct {
	baseURL   *url.URL
	http      *retryablehttp.Client
	userAgent string
}

var _ names.Source = (*Client)(nil)

// New builds a Client for the server at baseURL.
func New(baseURL string, logger *slog.Logger) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.HTTPClient.Timeout = requestTimeout
	if logger != nil {
		rc.Logger = logger.With("component", "client")
	} else {
		rc.Logger = nil
	}
	return &Client{baseURL: base, http: rc, userAgent: defaultUserAgent}, nil
}

// FetchNames implements names.Source.
func (c *Client) FetchNames(ctx context.Context, q names.Query) ([]names.Name, error) {
	if len(q.RunIDs) == 0 {
		return nil, nil
	}
	values := url.Values{}
	values.Set("runs", strings.Join(q.RunIDs, ","))
	if q.Kind != "" {
		values.Set("kind", string(q.Kind))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if q.Regex != "" {
		values.Set("regex", q.Regex)
	}
	rel := &url.URL{Path: "/api/names", RawQuery: values.Encode()}

	var payload []names.Name
	if err := c.do(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	for i := range payload {
		if payload[i].Kind == "" {
			payload[i].Kind = q.Kind
		}
	}
	return payload, nil
}

// Index uploads records to the remote index.
func (c *Client) Index(ctx context.Context, recs []store.Record) error {
	body, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return c.do(ctx, http.MethodPost, &url.URL{Path: "/api/names"}, body, nil)
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, body []byte, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	var reqBody any
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqURL.String(), reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("remote url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse remote url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
