package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RecordsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/queue/:venueId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/queue/:venueId", "200"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queue/venue-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/queue/:venueId", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(incidents.WithLabelValues("compensation_failed"))
	RecordIncident("compensation_failed")
	assert.Equal(t, before+1, testutil.ToFloat64(incidents.WithLabelValues("compensation_failed")))

	ConnectionOpened()
	ConnectionOpened()
	ConnectionClosed()
	assert.GreaterOrEqual(t, testutil.ToFloat64(wsConnections), float64(1))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordSaga("standard", "created")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jukebox_queue_add_requests_total")
}
