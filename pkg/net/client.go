package net

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/mchmarny/strshort/pkg/batch"
	"github.com/mchmarny/strshort/pkg/shorten"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "strshort-client"
)

var reqTransport = &http.Transport{
	MaxIdleConns:          maxIdleConns,
	IdleConnTimeout:       timeoutInSeconds * time.Second,
	DisableCompression:    true,
	DisableKeepAlives:     false,
	ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a strshort HTTP API server.
type Client struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates a client for the server at baseURL (e.g. http://127.0.0.1:8080).
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL: %s", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Timeout:   time.Duration(timeoutInSeconds) * time.Second,
			Transport: reqTransport,
		},
	}, nil
}

// Shorten shortens input on the server. Inputs the server rejects as
// invalid return an error wrapping shorten.ErrInvalidInput.
func (c *Client) Shorten(ctx context.Context, input string, trace bool) (*shorten.Result, error) {
	req := map[string]any{"input": input, "trace": trace}
	var res shorten.Result
	if err := c.do(ctx, http.MethodPost, "/shorten", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Batch shortens all inputs on the server.
func (c *Client) Batch(ctx context.Context, inputs []string) ([]*batch.Item, error) {
	var items []*batch.Item
	if err := c.do(ctx, http.MethodPost, "/batch", map[string]any{"inputs": inputs}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Table returns the substitution table used by the server.
func (c *Client) Table(ctx context.Context) (map[string]string, error) {
	var m map[string]string
	if err := c.do(ctx, http.MethodGet, "/table", nil, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating HTTP %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", clientAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("error executing HTTP %s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return toError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}

func toError(resp *http.Response) error {
	printHTTPResponse(resp)

	var body struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}

	invalid := shorten.ErrInvalidInput.Error()
	if resp.StatusCode == http.StatusBadRequest && strings.HasPrefix(msg, invalid) {
		return fmt.Errorf("%w%s", shorten.ErrInvalidInput, strings.TrimPrefix(msg, invalid))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func printHTTPResponse(resp *http.Response) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if respDump, err := httputil.DumpResponse(resp, false); err == nil {
		slog.Debug("http response", "dump", string(respDump))
	}
}
