package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordRedemption("qr", OutcomeSuccess)
	m.RecordRedemption("qr", OutcomeSuccess)
	m.RecordRedemption("code", OutcomeExpired)
	m.RecordSessionCreated()
	m.RecordNotification(true)
	m.RecordNotification(false)
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.redemptions.WithLabelValues("qr", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("code", OutcomeExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("failed")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "attendance_redemptions_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordRedemption("qr", OutcomeSuccess)
	m.RecordNotification(true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRandomCodeGenerator(t *testing.T) {
	gen := NewRandomCodeGenerator(8)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := gen.Generate()
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
