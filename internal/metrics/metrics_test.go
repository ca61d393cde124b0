package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipReasonLabels(t *testing.T) {
	before := testutil.ToFloat64(ObjectsSkipped.WithLabelValues(ReasonAlreadyExists))
	ObjectsSkipped.WithLabelValues(ReasonAlreadyExists).Inc()
	after := testutil.ToFloat64(ObjectsSkipped.WithLabelValues(ReasonAlreadyExists))
	assert.Equal(t, before+1, after)
}

func TestObserveRunDuration(t *testing.T) {
	ObserveRunDuration(1500 * time.Millisecond)
	assert.InDelta(t, 1.5, testutil.ToFloat64(RunDuration), 0.001)
}

func TestHandlerServesMetrics(t *testing.T) {
	ObjectsUploaded.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ceph2swift_objects_uploaded_total")
}
