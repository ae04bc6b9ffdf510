package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchDayBuildsZeroPaddedURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	date := time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC)

	_, err := client.FetchDay(context.Background(), date, "NO1")
	require.NoError(t, err)
	assert.Equal(t, "/2023/09-03_NO1.json", gotPath)
}

func TestFetchDayDecodesEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"NOK_per_kWh":0.254,"EUR_per_kWh":0.0229,"EXR":11.09,"time_start":"2023-09-03T00:00:00+02:00","time_end":"2023-09-03T01:00:00+02:00"},
			{"NOK_per_kWh":0.248,"EUR_per_kWh":0.0224,"EXR":11.09,"time_start":"2023-09-03T01:00:00+02:00","time_end":"2023-09-03T02:00:00+02:00"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	entries, err := client.FetchDay(context.Background(), time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC), "NO2")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 0.254, entries[0].NOKPerKWh)
	assert.Equal(t, 0, entries[0].TimeStart.Hour())
	assert.Equal(t, 1, entries[1].TimeStart.Hour())
}

func TestFetchDayNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchDay(context.Background(), time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC), "NO1")
	assert.Error(t, err)
}

func TestFetchDayMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.FetchDay(context.Background(), time.Date(2023, 9, 3, 0, 0, 0, 0, time.UTC), "NO1")
	assert.Error(t, err)
}
