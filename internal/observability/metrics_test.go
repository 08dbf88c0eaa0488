package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/marcharvest/internal/observability/metrics"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// since every instance owns its registry.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			assert.NoError(t, err)
			if assert.NotNil(t, m) {
				assert.NotNil(t, m.Harvest)
				assert.NotNil(t, m.MQTT)
				assert.NotNil(t, m.HTTP)
			}
		})
	}
	wg.Wait()
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Harvest.RecordOperation(metrics.OpCollect, metrics.ResultCommit)
	m.Harvest.AddRecords("main", metrics.OutcomeCreated, 3)
	m.HTTP.RecordRequest(http.MethodGet, "/api/v1/sources", http.StatusOK, 0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `harvest_operations_total{operation="collect",status="commit"} 1`)
	assert.Contains(t, text, `harvest_records_total{outcome="created",source="main"} 3`)
	assert.Contains(t, text, `http_requests_total{method="GET",path="/api/v1/sources",status_code="200"} 1`)
	assert.Contains(t, text, "go_goroutines")
}
