package reputation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the service counters exported on /metrics. A nil *Metrics records nothing.
type Metrics struct {
	collections        *prometheus.CounterVec
	scoresComputed     prometheus.Counter
	storeWrites        prometheus.Counter
	verifications      *prometheus.CounterVec
	credentials        prometheus.Counter
	overallScore       prometheus.Histogram
	pipelineDurations  prometheus.Histogram
	anchorFailures     prometheus.Counter
	degradedPipelines  prometheus.Counter
	rescoredAddresses  prometheus.Counter
	allSourcesFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		collections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zentry_signal_collections_total",
			Help: "signal source fetches by source and outcome",
		}, []string{"source", "outcome"}),
		scoresComputed: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_scores_computed_total",
			Help: "reputation scores calculated",
		}),
		storeWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_profile_store_writes_total",
			Help: "scores persisted to the profile store",
		}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zentry_identity_verifications_total",
			Help: "identity verification attempts by source and outcome",
		}, []string{"source", "outcome"}),
		credentials: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_credentials_exported_total",
			Help: "credentials issued",
		}),
		overallScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zentry_overall_score",
			Help:    "distribution of computed overall scores",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		pipelineDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "zentry_pipeline_duration_seconds",
			Help:    "time to collect, score and store one address",
			Buckets: prometheus.DefBuckets,
		}),
		anchorFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_anchor_failures_total",
			Help: "score anchors that could not be published",
		}),
		degradedPipelines: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_degraded_pipelines_total",
			Help: "pipelines that scored with at least one source absent",
		}),
		rescoredAddresses: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_rescored_addresses_total",
			Help: "addresses re-scored by the periodic re-scorer",
		}),
		allSourcesFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "zentry_all_sources_unavailable_total",
			Help: "pipelines that failed because no source answered",
		}),
	}
}

func (m *Metrics) collection(source, outcome string) {
	if m != nil {
		m.collections.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) verification(source, outcome string) {
	if m != nil {
		m.verifications.WithLabelValues(source, outcome).Inc()
	}
}

func (m *Metrics) scored(overall int) {
	if m != nil {
		m.scoresComputed.Inc()
		m.overallScore.Observe(float64(overall))
	}
}

func (m *Metrics) stored() {
	if m != nil {
		m.storeWrites.Inc()
	}
}

func (m *Metrics) credentialIssued() {
	if m != nil {
		m.credentials.Inc()
	}
}

func (m *Metrics) anchorFailed() {
	if m != nil {
		m.anchorFailures.Inc()
	}
}

func (m *Metrics) pipelineDone(elapsed time.Duration, degraded bool) {
	if m == nil {
		return
	}
	m.pipelineDurations.Observe(elapsed.Seconds())
	if degraded {
		m.degradedPipelines.Inc()
	}
}

func (m *Metrics) allSourcesFailed() {
	if m != nil {
		m.allSourcesFailures.Inc()
	}
}

func (m *Metrics) rescored() {
	if m != nil {
		m.rescoredAddresses.Inc()
	}
}
