package reco

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus collectors for the recommender. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RecommendTotal    *prometheus.CounterVec
	RecommendDuration prometheus.Histogram
	Candidates        prometheus.Histogram
	QuizTotal         prometheus.Counter
	ReloadsTotal      *prometheus.CounterVec
	SnapshotLessons   prometheus.Gauge
	SnapshotCF        prometheus.Gauge
}

// NewMetrics registers the recommender metrics once per process on the
// default registry.
//
// Metrics:
//   - reco_recommend_total{result} - recommendation requests
//   - reco_recommend_duration_seconds - ranking latency
//   - reco_candidates - eligible candidates per request
//   - reco_quiz_total - quiz suggestion requests
//   - reco_snapshot_reloads_total{result} - snapshot loads
//   - reco_snapshot_lessons - lessons in the serving snapshot
//   - reco_snapshot_cf_available - 1 when collaborative factors are loaded
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RecommendTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reco_recommend_total",
					Help: "Total number of recommendation requests",
				},
				[]string{"result"}, // "ok" or "not_initialized"
			),
			RecommendDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "reco_recommend_duration_seconds",
				Help:    "Time spent ranking candidates",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
			Candidates: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "reco_candidates",
				Help:    "Number of eligible candidates per recommendation request",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			}),
			QuizTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "reco_quiz_total",
				Help: "Total number of quiz suggestion requests",
			}),
			ReloadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reco_snapshot_reloads_total",
					Help: "Total number of snapshot loads",
				},
				[]string{"result"},
			),
			SnapshotLessons: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "reco_snapshot_lessons",
				Help: "Lessons in the serving snapshot",
			}),
			SnapshotCF: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "reco_snapshot_cf_available",
				Help: "1 when collaborative factors are loaded, 0 otherwise",
			}),
		}
	})
	return globalMetrics
}

func (m *Metrics) observeRecommend(ok bool, candidates int, d time.Duration) {
	if m == nil {
		return
	}
	if !ok {
		m.RecommendTotal.WithLabelValues("not_initialized").Inc()
		return
	}
	m.RecommendTotal.WithLabelValues("ok").Inc()
	m.RecommendDuration.Observe(d.Seconds())
	m.Candidates.Observe(float64(candidates))
}

func (m *Metrics) observeQuiz() {
	if m == nil {
		return
	}
	m.QuizTotal.Inc()
}

func (m *Metrics) observeReload(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.ReloadsTotal.WithLabelValues("ok").Inc()
	} else {
		m.ReloadsTotal.WithLabelValues("error").Inc()
	}
}

func (m *Metrics) observeSnapshot(s *Snapshot) {
	if m == nil {
		return
	}
	m.observeReload(true)
	m.SnapshotLessons.Set(float64(s.Len()))
	if s.CFAvailable() {
		m.SnapshotCF.Set(1)
	} else {
		m.SnapshotCF.Set(0)
	}
}
