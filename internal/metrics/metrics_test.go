package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("Failed to get metrics: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.Errorf("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func TestMetricsEndpoint(t *testing.T) {
	RecordRefresh(OutcomeUpdated)
	ObserveRefreshDuration(2 * time.Second)
	SetPlaylistSize(12, 34)
	RecordExternalFetchFailure("Кино")
	SetCircuitBreakerState("http://ext/a.m3u", "CLOSED")
	RecordItemsDropped(DropUnassigned, 2)

	output := scrape(t)

	tests := []struct {
		name     string
		contains string
	}{
		{"refresh_total", `acestream_playlist_refresh_total{outcome="updated"}`},
		{"refresh_duration", "acestream_playlist_refresh_duration_seconds_count"},
		{"descriptors", "acestream_playlist_descriptors 12"},
		{"entries", "acestream_playlist_entries 34"},
		{"external_failures", `acestream_playlist_external_fetch_failures_total{group="Кино"}`},
		{"cb_state", `acestream_playlist_circuit_breaker_state{source="http://ext/a.m3u"} 0`},
		{"items_dropped", `acestream_playlist_items_dropped_total{reason="unassigned"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected to find %s in output", tt.contains)
			}
		})
	}
}

func TestCircuitBreakerStateValues(t *testing.T) {
	tests := []struct {
		state string
		value string
	}{
		{"CLOSED", "0"},
		{"OPEN", "1"},
		{"HALF-OPEN", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			SetCircuitBreakerState("test-cb", tt.state)

			expectedLine := `acestream_playlist_circuit_breaker_state{source="test-cb"} ` + tt.value
			if !strings.Contains(scrape(t), expectedLine) {
				t.Errorf("Expected to find %s in output for state %s", expectedLine, tt.state)
			}
		})
	}
}

func TestRecordItemsDroppedIgnoresZero(t *testing.T) {
	RecordItemsDropped("never-used-reason", 0)

	if strings.Contains(scrape(t), `reason="never-used-reason"`) {
		t.Error("expected no series for a zero drop count")
	}
}
