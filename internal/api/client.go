package api

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

	"carbonaware/internal/metrics"
	"carbonaware/internal/models"
)

var (
	errNoContent = errors.New("no content")
	errNullBody  = errors.New("response body is null")
	errBlank     = errors.New("entry has none of the expected fields")
)

// Client is a client for the carbon-aware Web API
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client bound to baseURL. It fails with a *ConfigurationError
// when baseURL is not an absolute http(s) URL or an option is invalid.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, &ConfigurationError{URL: baseURL, Err: err}
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
	}

	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, &ConfigurationError{URL: baseURL, Err: err}
		}
	}

	return c, nil
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("base URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("base URL has no host")
	}
	return u, nil
}

// BuildURL joins path onto the base URL and encodes query
func (c *Client) BuildURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String()
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildURL(path, query), nil)
	if err != nil {
		return 0, &APIError{Operation: operation, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, operation, out)
}

func (c *Client) post(ctx context.Context, operation, path string, payload, out interface{}) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, &APIError{Operation: operation, Message: "failed to encode request body", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BuildURL(path, nil), bytes.NewReader(body))
	if err != nil {
		return 0, &APIError{Operation: operation, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, operation, out)
}

// do sends req and decodes a 2xx body into out. It returns errNoContent for
// 204 so list operations can report an empty result. Any other 2xx must carry
// a non-null JSON body.
func (c *Client) do(req *http.Request, operation string, out interface{}) (int, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(operation, 0, time.Since(start))
		return 0, &APIError{Operation: operation, Message: "failed to send request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordAPIRequest(operation, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newStatusError(operation, resp.StatusCode, body)
	}

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, errNoContent
	}

	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return resp.StatusCode, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response",
			Body:       "null",
			Err:        errNullBody,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "failed to decode response",
			Body:       truncate(string(body)),
			Err:        err,
		}
	}

	return resp.StatusCode, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func setTime(q url.Values, key string, t time.Time) {
	if !t.IsZero() {
		q.Set(key, formatTime(t))
	}
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

// checkEntries rejects a result whose entries decoded to nothing, as `null`
// or `{}` entries do.
func checkEntries[T any](operation string, status int, entries []T, blank func(T) bool) error {
	for i, e := range entries {
		if blank(e) {
			return &APIError{
				Operation:  operation,
				StatusCode: status,
				Message:    fmt.Sprintf("failed to decode response: entry %d", i),
				Err:        errBlank,
			}
		}
	}
	return nil
}

func blankEmissions(e models.EmissionsData) bool {
	return e.Location == "" && e.Time.IsZero()
}

func blankForecast(f models.EmissionsForecast) bool {
	return f.Location == "" && f.GeneratedAt.IsZero() && f.DataStartAt.IsZero() &&
		len(f.ForecastData) == 0 && len(f.OptimalDataPoints) == 0
}

func blankIntensity(ci models.CarbonIntensity) bool {
	return ci.Location == "" && ci.StartTime.IsZero() && ci.EndTime.IsZero()
}
