package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "failure", Outcome(errors.New("boom")))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "200", StatusLabel(200))
	assert.Equal(t, "error", StatusLabel(0))
}

func TestHandlerExposesCollectors(t *testing.T) {
	SyncRuns.WithLabelValues("sleep", "success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sleepfit_sync_runs_total")
}

func TestCounterIncrements(t *testing.T) {
	c := TokenRefreshes.WithLabelValues("failure")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
