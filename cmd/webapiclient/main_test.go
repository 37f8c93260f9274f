package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"carbonaware/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sectionOrder = []string{
	"/emissions/bylocations/best",
	"/emissions/bylocations",
	"/emissions/bylocation",
	"/emissions/forecasts/current",
	"/emissions/forecasts/batch",
	"/emissions/average-carbon-intensity",
	"/emissions/average-carbon-intensity/batch",
}

const (
	pointsBody    = `[{"location":"westus","time":"2023-01-01T00:00:00Z","duration":"00:05:00","rating":401.5},{"location":"eastus","time":"2023-01-01T00:05:00Z","duration":"00:05:00","rating":402.5}]`
	forecastBody  = `[{"location":"westus","windowSize":10,"forecastData":[]}]`
	intensityBody = `{"location":"westus","startTime":"2023-01-01T00:00:00Z","endTime":"2023-01-01T23:59:59Z","rating":412.5}`
	batchBody     = `[{"location":"westus","startTime":"2023-01-01T00:00:00Z","endTime":"2023-01-01T23:59:59Z","carbonIntensity":345.4}]`
)

// fakeWebAPI answers each path with a canned body; overrides replace entries.
func fakeWebAPI(t *testing.T, overrides map[string]string, status map[string]int) (*httptest.Server, *[]string) {
	t.Helper()
	bodies := map[string]string{
		"/emissions/bylocations/best":               pointsBody,
		"/emissions/bylocations":                    pointsBody,
		"/emissions/bylocation":                     pointsBody,
		"/emissions/forecasts/current":              forecastBody,
		"/emissions/forecasts/batch":                forecastBody,
		"/emissions/average-carbon-intensity":       intensityBody,
		"/emissions/average-carbon-intensity/batch": batchBody,
	}
	for k, v := range overrides {
		bodies[k] = v
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path)
		mu.Unlock()

		if code, ok := status[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestRun_PrintsAllSections(t *testing.T) {
	srv, seen := fakeWebAPI(t, nil, nil)
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), client, &out, time.Now()))

	assert.Equal(t, sectionOrder, *seen)

	text := out.String()
	last := -1
	for _, path := range sectionOrder {
		idx := strings.Index(text, "--- "+path+" ---\n")
		require.GreaterOrEqual(t, idx, 0, "missing header for %s", path)
		assert.Greater(t, idx, last, "section %s out of order", path)
		last = idx
	}

	// best prints every point, by-locations only the first
	assert.Equal(t, 3, strings.Count(text, `"rating": 401.5`))
	assert.Equal(t, 1, strings.Count(text, `"rating": 402.5`))
	assert.Contains(t, text, `"carbonIntensity": 412.5`)
	assert.Contains(t, text, `"carbonIntensity": 345.4`)
	assert.NotContains(t, text, "no data")
}

func TestRun_EmptyListsPrintNoData(t *testing.T) {
	srv, _ := fakeWebAPI(t, map[string]string{
		"/emissions/bylocations": `[]`,
		"/emissions/bylocation":  `[]`,
	}, map[string]int{
		"/emissions/forecasts/current": http.StatusNoContent,
	})
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), client, &out, time.Now()))

	assert.Equal(t, 3, strings.Count(out.String(), "no data"))
	assert.Contains(t, out.String(), "--- /emissions/bylocations ---\nno data\n\n")
}

func TestRun_StopsOnAPIError(t *testing.T) {
	srv, seen := fakeWebAPI(t, nil, map[string]int{
		"/emissions/bylocation": http.StatusInternalServerError,
	})
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), client, &out, time.Now())
	require.Error(t, err)
	assert.True(t, api.IsAPIError(err))
	assert.Equal(t, http.StatusInternalServerError, api.StatusCode(err))
	assert.Len(t, *seen, 3)
	assert.NotContains(t, out.String(), "/emissions/forecasts/current")
}

func TestRootCmd_Args(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantConfig bool
	}{
		{name: "no args", args: nil},
		{name: "too many args", args: []string{"http://a", "http://b"}},
		{name: "malformed url", args: []string{"not a url"}, wantConfig: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, tt.wantConfig, api.IsConfigurationError(err))
		})
	}
}

func TestYesterday(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	now := time.Date(2023, 3, 1, 15, 4, 5, 0, loc)

	start, end := yesterday(now)

	assert.Equal(t, time.Date(2023, 2, 28, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2023, 2, 28, 23, 59, 59, 0, loc), end)
}
