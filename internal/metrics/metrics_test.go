package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.IncEvent("function_added")
	m.IncPlayback("function_added")
	m.IncDecodeError("function_added")
	m.IncThrottled("function_added")
	m.IncDocumentAttached()
	m.IncDuplicateRegistration()
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncEvent("symbol_added")
	m.IncEvent("symbol_added")
	m.IncPlayback("symbol_added")
	m.IncDocumentAttached()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("symbol_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.playbacksTotal.WithLabelValues("symbol_added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsAttachedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.duplicateRegistrations))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.IncDecodeError("data_written")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `binjuice_decode_errors_total{event="data_written"} 1`))
}
