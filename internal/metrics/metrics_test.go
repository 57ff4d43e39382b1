package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTP(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/categories/{category}", "200"))

	ObserveHTTP("GET", "/categories/{category}", http.StatusOK, 5*time.Millisecond)

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/categories/{category}", "200"))
	assert.Equal(t, before+1, after)
}

func TestInFlight(t *testing.T) {
	done := InFlight()
	assert.Equal(t, float64(1), testutil.ToFloat64(httpInFlight))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))
}

func TestHandlerExposesCollectors(t *testing.T) {
	CatalogMutations.WithLabelValues("item", "create").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "catalog_catalog_mutations_total")
	assert.Contains(t, string(body), "go_goroutines")
}
