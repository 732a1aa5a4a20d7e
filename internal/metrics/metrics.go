// Package metrics exposes the playback engine's operational counters over
// Prometheus, grounded on the domain-stack wiring for
// github.com/prometheus/client_golang (SPEC_FULL.md's ambient observability
// section: buffer occupancy, decoder underruns, output failures, cross-fade
// engagement).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tunewave/tunewaved/internal/songref"
)

// Collector owns a private Prometheus registry (never the global
// DefaultRegisterer) so multiple daemon instances in the same process,
// as the test suite spins up, never collide on metric names.
type Collector struct {
	registry *prometheus.Registry

	bufferOutstanding    prometheus.Gauge
	decoderUnderruns     prometheus.Counter
	decoderFailures      prometheus.Counter
	outputFailures       *prometheus.CounterVec
	crossfadeEngagements prometheus.Counter
	songsPlayed          prometheus.Counter
	idleEvents           *prometheus.CounterVec
}

// New creates a Collector with every metric registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		bufferOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tunewaved",
			Subsystem: "chunk",
			Name:      "buffer_outstanding",
			Help:      "Chunks currently allocated from the shared MusicBuffer.",
		}),
		decoderUnderruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "decoder",
			Name:      "underruns_total",
			Help:      "Times a decoder pipe ran dry before the next song was ready.",
		}),
		decoderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "decoder",
			Name:      "failures_total",
			Help:      "Decoder goroutines that exited with a non-nil error.",
		}),
		outputFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "output",
			Name:      "failures_total",
			Help:      "Output failures, labeled by output name.",
		}, []string{"output"}),
		crossfadeEngagements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "player",
			Name:      "crossfade_engagements_total",
			Help:      "Cross-fades the player has started between two songs.",
		}),
		songsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "player",
			Name:      "songs_played_total",
			Help:      "Songs the player has transitioned into (fresh Play or advance).",
		}),
		idleEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tunewaved",
			Subsystem: "player",
			Name:      "idle_events_total",
			Help:      "Idle events, labeled by source.",
		}, []string{"source"}),
	}

	reg.MustRegister(
		c.bufferOutstanding,
		c.decoderUnderruns,
		c.decoderFailures,
		c.outputFailures,
		c.crossfadeEngagements,
		c.songsPlayed,
		c.idleEvents,
	)
	return c
}

// Handler returns the HTTP handler internal/control mounts at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// SetBufferOutstanding records the shared MusicBuffer's current
// outstanding-chunk count (poll-driven; the buffer itself has no
// observer hook).
func (c *Collector) SetBufferOutstanding(n int) {
	c.bufferOutstanding.Set(float64(n))
}

// RecordDecoderUnderrun increments the decoder-underrun counter.
func (c *Collector) RecordDecoderUnderrun() {
	c.decoderUnderruns.Inc()
}

// RecordDecoderFailure increments the decoder-failure counter.
func (c *Collector) RecordDecoderFailure() {
	c.decoderFailures.Inc()
}

// RecordCrossfadeEngaged increments the cross-fade-engagement counter.
func (c *Collector) RecordCrossfadeEngaged() {
	c.crossfadeEngagements.Inc()
}

// Idle implements player.Notifier, incrementing the idle-events counter.
func (c *Collector) Idle(source string) {
	c.idleEvents.WithLabelValues(source).Inc()
}

// SongChanged implements player.Notifier, incrementing the songs-played
// counter. The SongRef itself carries no metric-worthy cardinality (a URI
// would blow up the label space), so only the count is recorded.
func (c *Collector) SongChanged(_ *songref.SongRef) {
	c.songsPlayed.Inc()
}

// OutputFailed implements player.Notifier, incrementing the per-output
// failure counter.
func (c *Collector) OutputFailed(name string, _ error) {
	c.outputFailures.WithLabelValues(name).Inc()
}
