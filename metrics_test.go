package trajopt

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveSimulation(Crashed, time.Second)
	m.ObserveGeneration(Generation{})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveSimulation(Nominal, time.Millisecond)
	m.ObserveSimulation(Crashed, time.Millisecond)
	m.ObserveSimulation(Crashed, time.Millisecond)
	m.ObserveGeneration(Generation{
		HistoryEntry: HistoryEntry{Generation: 3, Best: 1.5, Mean: 4},
		BestEver:     1.25,
		BestOutcome:  Outcome{MinDistance: 0.2 * AU},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.simulations.WithLabelValues("crashed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.simulations.WithLabelValues("nominal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.generation))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.bestFitness))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.meanFitness))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.bestEver))
	assert.InDelta(t, 0.2, testutil.ToFloat64(m.minDistanceAU), 1e-12)

	srv := httptest.NewServer(MetricsHandler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `trajopt_simulations_total{status="crashed"} 2`), string(body))
	assert.True(t, strings.Contains(string(body), "trajopt_simulation_duration_seconds_count 3"))
}

func TestSimulatorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	conf := testMission()
	conf.MaxDuration = 2 * 24 * time.Hour
	sim, err := NewSimulator(NewCircularEphemeris(epoch), conf, DefaultTermination(), nil, m)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := sim.Simulate(Chromosome{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.simulations.WithLabelValues("nominal")))
}
