package trajopt

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects optimization metrics. A nil *Metrics records nothing.
type Metrics struct {
	simulations   *prometheus.CounterVec
	simDuration   prometheus.Histogram
	generation    prometheus.Gauge
	bestFitness   prometheus.Gauge
	meanFitness   prometheus.Gauge
	bestEver      prometheus.Gauge
	minDistanceAU prometheus.Gauge
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		simulations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trajopt_simulations_total",
				Help: "Total number of simulations by terminal status",
			},
			[]string{"status"},
		),
		simDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trajopt_simulation_duration_seconds",
				Help:    "Wall time spent per simulation",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajopt_generation",
			Help: "Index of the last evaluated generation",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajopt_generation_best_fitness",
			Help: "Best fitness of the last evaluated generation",
		}),
		meanFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajopt_generation_mean_fitness",
			Help: "Mean fitness of the last evaluated generation",
		}),
		bestEver: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajopt_best_fitness",
			Help: "Best fitness found so far",
		}),
		minDistanceAU: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trajopt_generation_min_distance_au",
			Help: "Closest approach to the target of the best chromosome of the last generation",
		}),
	}
	reg.MustRegister(m.simulations, m.simDuration, m.generation, m.bestFitness, m.meanFitness, m.bestEver, m.minDistanceAU)
	return m
}

// ObserveSimulation records one simulation.
func (m *Metrics) ObserveSimulation(status Status, duration time.Duration) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(status.String()).Inc()
	m.simDuration.Observe(duration.Seconds())
}

// ObserveGeneration records the summary of one generation.
func (m *Metrics) ObserveGeneration(g Generation) {
	if m == nil {
		return
	}
	m.generation.Set(float64(g.Generation))
	m.bestFitness.Set(g.Best)
	m.meanFitness.Set(g.Mean)
	m.bestEver.Set(g.BestEver)
	m.minDistanceAU.Set(g.BestOutcome.MinDistance / AU)
}

// MetricsHandler serves the metrics gathered by g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
