package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"carbonaware/internal/api"
	"carbonaware/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocationStore struct {
	existing map[string]bool
	inserted []string
	failOn   string
}

func (f *fakeLocationStore) InsertLocation(_ context.Context, name string, _, _ *float64) error {
	if name == f.failOn {
		return errors.New("disk full")
	}
	if f.existing[name] {
		return database.ErrDuplicateLocation
	}
	f.inserted = append(f.inserted, name)
	return nil
}

func newLocationsService(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"westus":{"latitude":37.783,"longitude":-122.417,"name":"westus"},
			"eastus":{"latitude":37.3719,"longitude":-79.8164,"name":"eastus"},
			"centralus":{"latitude":41.5908,"longitude":-93.6208}
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	return client
}

func TestSeed(t *testing.T) {
	store := &fakeLocationStore{existing: map[string]bool{"eastus": true}}

	inserted, skipped, err := seed(context.Background(), newLocationsService(t), store)
	require.NoError(t, err)

	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"centralus", "westus"}, store.inserted)
}

func TestSeed_InsertError(t *testing.T) {
	store := &fakeLocationStore{failOn: "westus"}

	_, _, err := seed(context.Background(), newLocationsService(t), store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
