// Package metrics provides Prometheus metrics for duration resolution and guide publishing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup results
const (
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheUnavailable = "unavailable"
)

// Probe outcomes
const (
	ProbeSuccess = "success"
	ProbeFailure = "failure"
	ProbeTimeout = "timeout"
	ProbeSkipped = "skipped"
	ProbeMemo    = "memoized"
)

var (
	// DurationCacheLookups counts duration cache reads, by result.
	DurationCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retroguide_duration_cache_lookups_total",
		Help: "Total number of duration cache lookups, by result.",
	}, []string{"result"})

	// DurationProbes counts probe attempts, by outcome.
	DurationProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retroguide_duration_probes_total",
		Help: "Total number of duration probes, by outcome.",
	}, []string{"outcome"})

	// DurationProbeSeconds observes probe latency.
	DurationProbeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retroguide_duration_probe_seconds",
		Help:    "Latency of external duration probes.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// DurationProbesInFlight tracks probes currently running.
	DurationProbesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retroguide_duration_probes_in_flight",
		Help: "Current number of running duration probes.",
	})

	// AnchorResets counts channel anchor resets, by reason.
	AnchorResets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retroguide_anchor_resets_total",
		Help: "Total number of channel anchor resets, by reason.",
	}, []string{"reason"})

	// GuideGenerationSeconds observes guide render latency, by document.
	GuideGenerationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retroguide_guide_generation_seconds",
		Help:    "Time spent building guide documents, by document.",
		Buckets: prometheus.DefBuckets,
	}, []string{"document"})

	// GuideChannels is the number of channels in the last published guide.
	GuideChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retroguide_guide_channels",
		Help: "Number of channels in the last published guide.",
	})

	// GuideProgrammes is the number of programmes in the last published guide.
	GuideProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retroguide_guide_programmes",
		Help: "Number of programmes in the last published guide.",
	})

	// GuideRefreshErrors counts failed guide refreshes.
	GuideRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retroguide_guide_refresh_errors_total",
		Help: "Total number of failed guide refreshes.",
	})
)

// RecordCacheLookup increments the cache lookup counter.
func RecordCacheLookup(result string) {
	DurationCacheLookups.WithLabelValues(result).Inc()
}

// RecordProbe counts a probe outcome and, when elapsed is positive, its latency.
func RecordProbe(outcome string, elapsed time.Duration) {
	DurationProbes.WithLabelValues(outcome).Inc()
	if elapsed > 0 {
		DurationProbeSeconds.Observe(elapsed.Seconds())
	}
}

// RecordAnchorReset increments the anchor reset counter.
func RecordAnchorReset(reason string) {
	AnchorResets.WithLabelValues(reason).Inc()
}

// ObserveGuideGeneration records how long a document took to build.
func ObserveGuideGeneration(document string, elapsed time.Duration) {
	GuideGenerationSeconds.WithLabelValues(document).Observe(elapsed.Seconds())
}

// SetGuideSize records the size of the last published guide.
func SetGuideSize(channels, programmes int) {
	GuideChannels.Set(float64(channels))
	GuideProgrammes.Set(float64(programmes))
}
