package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"showtimes-scraper/internal/components/telemetry"
	"showtimes-scraper/lib/restyutil"

	"github.com/stretchr/testify/require"
)

func placesServer(t testing.TB, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func writeJson(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestPlacesClientGeocode(t *testing.T) {
	var gotQuery, gotKey string
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("key")
		writeJson(w, http.StatusOK, `{
			"status": "OK",
			"results": [
				{"geometry": {"location": {"lat": 47.3573, "lng": 8.5233}}},
				{"geometry": {"location": {"lat": 1, "lng": 2}}}
			]
		}`)
	})

	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "secret"}, &telemetry.MemoryAPI{})
	coords, err := client.Geocode(context.Background(), "Arena Cinemas Sihlcity Zürich")
	require.NoError(t, err)
	require.Equal(t, Coordinates{Latitude: 47.3573, Longitude: 8.5233}, coords)
	require.Equal(t, "Arena Cinemas Sihlcity Zürich", gotQuery)
	require.Equal(t, "secret", gotKey)
}

func TestPlacesClientNoResults(t *testing.T) {
	var calls atomic.Int32
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJson(w, http.StatusOK, `{"status": "ZERO_RESULTS", "results": []}`)
	})

	tel := &telemetry.MemoryAPI{}
	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "secret", MaxRetries: 3}, tel)
	_, err := client.Geocode(context.Background(), "Nowhere")
	require.ErrorIs(t, err, ErrNoResults)
	require.Equal(t, int32(1), calls.Load())
	require.Len(t, tel.Reports("broken"), 1)
}

func TestPlacesClientRequestDenied(t *testing.T) {
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid.", "results": []}`)
	})

	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "wrong"}, &telemetry.MemoryAPI{})
	_, err := client.Geocode(context.Background(), "Arena Zürich")
	require.ErrorIs(t, err, ErrCredentials)
}

func TestPlacesClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJson(w, http.StatusBadGateway, `{}`)
			return
		}
		writeJson(w, http.StatusOK, `{"status": "OK", "results": [{"geometry": {"location": {"lat": 46.9, "lng": 7.4}}}]}`)
	})

	tel := &telemetry.MemoryAPI{}
	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "secret", MaxRetries: 2}, tel)
	coords, err := client.Geocode(context.Background(), "Rex Bern")
	require.NoError(t, err)
	require.Equal(t, Coordinates{Latitude: 46.9, Longitude: 7.4}, coords)
	require.Equal(t, int32(2), calls.Load())
	require.Len(t, tel.Reports("warning"), 1)
}

func TestPlacesClientClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJson(w, http.StatusBadRequest, `{}`)
	})

	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "secret", MaxRetries: 2}, &telemetry.MemoryAPI{})
	_, err := client.Geocode(context.Background(), "Rex Bern")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestPlacesClientDumpsRedactedMessages(t *testing.T) {
	server := placesServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, `{"status": "OK", "results": [{"geometry": {"location": {"lat": 46.9, "lng": 7.4}}}]}`)
	})

	dir := filepath.Join(t.TempDir(), "dumps")
	output, err := restyutil.NewFilesystemOutput(dir)
	require.NoError(t, err)

	client := NewPlacesClient(PlacesOptions{Endpoint: server.URL, Key: "secret", DumpOutput: output}, &telemetry.MemoryAPI{})
	_, err = client.Geocode(context.Background(), "Rex Bern")
	require.NoError(t, err)

	contents, err := os.ReadFile(filepath.Join(output.Dir(), "1.txt"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(contents), "Rex+Bern"), string(contents))
	require.False(t, strings.Contains(string(contents), "secret"), string(contents))
}

func TestPlacesClientRedactsKeyFromTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	tel := &telemetry.MemoryAPI{}
	client := NewPlacesClient(PlacesOptions{Endpoint: endpoint, Key: "supersecret"}, tel)
	_, err := client.Geocode(context.Background(), "Arena Zürich")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "supersecret")
	require.Contains(t, err.Error(), "key=%3Credacted%3E")

	reports := append(tel.Reports("broken"), tel.Reports("warning")...)
	require.NotEmpty(t, reports)
	for _, report := range reports {
		require.NotContains(t, fmt.Sprint(report.Params...), "supersecret", report.ID)
	}
}
