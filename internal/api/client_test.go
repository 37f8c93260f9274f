package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errRT always fails, simulating a network error.
type errRT struct{}

func (errRT) RoundTrip(*http.Request) (*http.Response, error) { return nil, fmt.Errorf("boom") }

// recordedRequest captures what the fake service saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	CType  string
}

// newFakeService serves status/body for every request and counts hits.
func newFakeService(t *testing.T, status int, body string) (*httptest.Server, *recordedRequest, *int32) {
	t.Helper()
	rec := &recordedRequest{}
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		buf, _ := io.ReadAll(r.Body)
		*rec = recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(buf),
			CType:  r.Header.Get("Content-Type"),
		}
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec, &hits
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"no scheme", "localhost:8080"},
		{"relative", "/emissions"},
		{"unsupported scheme", "ftp://example.com"},
		{"no host", "http://"},
		{"unparseable", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.url)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, IsConfigurationError(err), "want ConfigurationError, got %T", err)
			assert.False(t, IsAPIError(err))
		})
	}
}

func TestNew_InvalidOption(t *testing.T) {
	_, err := New("http://localhost:8080", WithHTTPTimeout(0))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	_, err = New("http://localhost:8080", WithHTTPClient(nil))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestNew_Valid(t *testing.T) {
	c, err := New("https://carbon-aware.example.com/api/", WithHTTPTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
	assert.Equal(t, "https://carbon-aware.example.com/api/", c.BaseURL())
}

func TestWithHTTPClient_DoesNotMutateCaller(t *testing.T) {
	hc := &http.Client{}
	c, err := New("http://localhost:8080", WithHTTPClient(hc), WithDebugLogging(true))
	require.NoError(t, err)

	assert.Nil(t, hc.Transport)
	_, ok := c.http.Transport.(*debugTransport)
	assert.True(t, ok)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		path  string
		query url.Values
		want  string
	}{
		{
			name: "no query",
			base: "http://localhost:8080",
			path: "/locations",
			want: "http://localhost:8080/locations",
		},
		{
			name:  "base path prefix with trailing slash",
			base:  "http://localhost:8080/api/",
			path:  "/emissions/bylocation",
			query: url.Values{"location": {"westus"}},
			want:  "http://localhost:8080/api/emissions/bylocation?location=westus",
		},
		{
			name:  "repeated locations",
			base:  "https://example.com",
			path:  "/emissions/bylocations",
			query: url.Values{"location": {"westus", "eastus"}},
			want:  "https://example.com/emissions/bylocations?location=westus&location=eastus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BuildURL(tt.path, tt.query))
		})
	}
}

func TestNetworkFailure_YieldsAPIError(t *testing.T) {
	c, err := New("http://localhost:8080", WithHTTPClient(&http.Client{Transport: errRT{}}))
	require.NoError(t, err)

	data, err := c.EmissionsByLocation(context.Background(), "westus", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Nil(t, data)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, opEmissionsByLocation, apiErr.Operation)
	assert.Contains(t, err.Error(), "boom")
}

func TestCanceledContext_YieldsAPIError(t *testing.T) {
	srv, _, hits := newFakeService(t, http.StatusOK, `[]`)
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.BestEmissionsByLocations(ctx, []string{"westus"}, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestNon2xx_YieldsAPIErrorAndNoResult(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusInternalServerError,
		http.StatusNotImplemented,
		http.StatusMovedPermanently,
	}

	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, _, _ := newFakeService(t, status, `[{"location":"westus","rating":1}]`)
			c := newTestClient(t, srv)
			ctx := context.Background()
			now := time.Now()

			best, err := c.BestEmissionsByLocations(ctx, []string{"westus"}, now, now)
			assert.Nil(t, best)
			assert.Equal(t, status, StatusCode(err))

			all, err := c.EmissionsByLocations(ctx, []string{"westus"}, now, now)
			assert.Nil(t, all)
			assert.Equal(t, status, StatusCode(err))

			one, err := c.EmissionsByLocation(ctx, "westus", now, now)
			assert.Nil(t, one)
			assert.Equal(t, status, StatusCode(err))

			fc, err := c.CurrentForecast(ctx, []string{"westus"}, now, now, 10)
			assert.Nil(t, fc)
			assert.Equal(t, status, StatusCode(err))

			fb, err := c.ForecastBatch(ctx, nil)
			assert.Nil(t, fb)
			assert.Equal(t, status, StatusCode(err))

			avg, err := c.AverageCarbonIntensity(ctx, "westus", now, now)
			assert.Nil(t, avg)
			assert.Equal(t, status, StatusCode(err))

			ab, err := c.AverageCarbonIntensityBatch(ctx, nil)
			assert.Nil(t, ab)
			assert.Equal(t, status, StatusCode(err))

			locs, err := c.Locations(ctx)
			assert.Nil(t, locs)
			assert.Equal(t, status, StatusCode(err))
		})
	}
}

func TestProblemDetailsMessage(t *testing.T) {
	body := `{"title":"ArgumentException","status":400,"detail":"Required field: A value for 'location' must be provided.","errors":{"location":["missing"]}}`
	srv, _, _ := newFakeService(t, http.StatusBadRequest, body)
	c := newTestClient(t, srv)

	_, err := c.EmissionsByLocations(context.Background(), nil, time.Time{}, time.Time{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ArgumentException: Required field: A value for 'location' must be provided. [location: missing]", apiErr.Message)
	assert.Equal(t, body, apiErr.Body)
}

func TestPlainTextErrorMessage(t *testing.T) {
	srv, _, _ := newFakeService(t, http.StatusBadGateway, "upstream unavailable")
	c := newTestClient(t, srv)

	_, err := c.Locations(context.Background())
	require.Error(t, err)
	assert.Equal(t, "get_locations: API error: status 502: Bad Gateway: upstream unavailable", err.Error())
}

func TestMalformedJSON_YieldsAPIError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"truncated", `[{"location":"westus"`},
		{"object instead of array", `{"location":"westus"}`},
		{"wrong field type", `[{"location":42}]`},
		{"bad timestamp", `[{"location":"westus","time":"yesterday"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newFakeService(t, http.StatusOK, tt.body)
			c := newTestClient(t, srv)

			data, err := c.EmissionsByLocations(context.Background(), []string{"westus"}, time.Time{}, time.Time{})
			require.Error(t, err)
			assert.Nil(t, data)
			assert.True(t, IsAPIError(err))
			assert.Equal(t, http.StatusOK, StatusCode(err))
		})
	}
}

func TestNoContent_YieldsEmptyResult(t *testing.T) {
	srv, _, _ := newFakeService(t, http.StatusNoContent, "")
	c := newTestClient(t, srv)
	ctx := context.Background()

	data, err := c.EmissionsByLocations(ctx, []string{"westus"}, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)

	fc, err := c.CurrentForecast(ctx, []string{"westus"}, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.NotNil(t, fc)
	assert.Empty(t, fc)

	locs, err := c.Locations(ctx)
	require.NoError(t, err)
	assert.Empty(t, locs)

	avg, err := c.AverageCarbonIntensity(ctx, "westus", time.Now(), time.Now())
	require.Error(t, err)
	assert.Nil(t, avg)
	assert.Equal(t, http.StatusNoContent, StatusCode(err))
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
	assert.Equal(t, 0, StatusCode(nil))
	assert.Equal(t, 418, StatusCode(fmt.Errorf("wrapped: %w", &APIError{StatusCode: 418})))
}

func TestEmptyBodyWithOK_YieldsAPIError(t *testing.T) {
	srv, _, _ := newFakeService(t, http.StatusOK, "")
	c := newTestClient(t, srv)

	data, err := c.EmissionsByLocations(context.Background(), []string{"westus"}, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, IsAPIError(err))
	assert.Equal(t, http.StatusOK, StatusCode(err))
}

func TestNullBody_YieldsAPIError(t *testing.T) {
	srv, _, _ := newFakeService(t, http.StatusOK, "null")
	c := newTestClient(t, srv)

	locs, err := c.Locations(context.Background())
	require.Error(t, err)
	assert.Nil(t, locs)
	assert.True(t, errors.Is(err, errNullBody))
}

func TestAPIError_IncludesCause(t *testing.T) {
	srv, _, _ := newFakeService(t, http.StatusOK, `[{"location":42}]`)
	c := newTestClient(t, srv)

	_, err := c.EmissionsByLocations(context.Background(), []string{"westus"}, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 200: failed to decode response: json: cannot unmarshal")

	plain := &APIError{Operation: "op", StatusCode: 500, Message: "boom"}
	assert.Equal(t, "op: API error: status 500: boom", plain.Error())
}
