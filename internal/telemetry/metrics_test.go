package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackGeneration(t *testing.T) {
	before := testutil.ToFloat64(generationsTotal.WithLabelValues("api", "success"))
	TrackGeneration("api", true)
	assert.Equal(t, before+1, testutil.ToFloat64(generationsTotal.WithLabelValues("api", "success")))

	beforeUnclassified := testutil.ToFloat64(generationsTotal.WithLabelValues("unclassified", "failure"))
	TrackGeneration("", false)
	assert.Equal(t, beforeUnclassified+1, testutil.ToFloat64(generationsTotal.WithLabelValues("unclassified", "failure")))
}

func TestTrackRunAndScenarios(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("ui", "failure"))
	TrackRun("ui", false, 1.5)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("ui", "failure")))

	passed := testutil.ToFloat64(scenariosTotal.WithLabelValues("passed"))
	failed := testutil.ToFloat64(scenariosTotal.WithLabelValues("failed"))
	TrackScenarios(3, 2)
	assert.Equal(t, passed+3, testutil.ToFloat64(scenariosTotal.WithLabelValues("passed")))
	assert.Equal(t, failed+2, testutil.ToFloat64(scenariosTotal.WithLabelValues("failed")))
}

func TestMetricsHandler(t *testing.T) {
	TrackAgentRequest("mock")
	ObserveAgentLatency("mock", 0.25)

	srv := httptest.NewServer(MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "testassist_agent_requests_total")
}
