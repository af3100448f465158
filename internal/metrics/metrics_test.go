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

	"github.com/aiscribe/scribe/internal/graph"
)

func TestListenerTracksMap(t *testing.T) {
	c := New()
	s := graph.NewStore()
	s.OnChange(c.Listener())

	root, _ := s.CreateTheme("T", graph.DefaultCenter)
	s.AddNode(root.ID)
	s.AddNode(root.ID)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.mutations.WithLabelValues(string(graph.ChangeNodeAdded))))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.nodes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.edges))
}

func TestObserveAIAndPersist(t *testing.T) {
	c := New()

	c.ObserveAI("expand", "ok", time.Second)
	c.ObserveAI("expand", "error", time.Second)
	c.PersistFailed(errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.aiCalls.WithLabelValues("expand", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.persistErrors))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.ObserveHTTP("GET /api/map", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scribe_http_requests_total{code="200",route="GET /api/map"} 1`)
}
