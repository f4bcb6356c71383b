package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("availability", http.StatusOK)
		IncGRPC("/breezbook.availability.v1.AvailabilityService/GetAvailability", "OK")
		ObserveAvailability("carwash", 15*time.Millisecond, 6)
		IncQuote("carwash", "issued")
		IncBooking("carwash", "created")
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(unresourceable.WithLabelValues("dogs"))
	AddUnresourceable("dogs", 2)
	AddUnresourceable("dogs", 0)
	assert.Equal(t, before+2, testutil.ToFloat64(unresourceable.WithLabelValues("dogs")))

	IncJob("export", errors.New("boom"))
	assert.Equal(t, float64(1), testutil.ToFloat64(jobRuns.WithLabelValues("export", "error")))
}

func TestHandler(t *testing.T) {
	Register()
	IncHTTP("healthz", http.StatusOK)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "breezbook_http_requests_total")
}
