// Package metrics provides Prometheus metrics for the sync core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/MariaFayed/flames-avatar/internal/bus"
)

const namespace = "flames_avatar"

// Metrics holds all Prometheus collectors for one client process.
type Metrics struct {
	registry *prometheus.Registry

	UtterancesReady  prometheus.Counter
	UtterancesPlayed prometheus.Counter
	PlaybackFailures prometheus.Counter
	VisemesFired     prometheus.Counter
	PoseSent         prometheus.Counter
	PoseDropped      prometheus.Counter
	Reconnects       prometheus.Counter

	PendingUtterances prometheus.Gauge
	QueueDepth        prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UtterancesReady: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_ready_total",
			Help:      "Utterances whose audio and timing halves both arrived.",
		}),
		UtterancesPlayed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_played_total",
			Help:      "Utterances played to completion, including failed ones.",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_failures_total",
			Help:      "Utterances whose decode or playback failed.",
		}),
		VisemesFired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visemes_fired_total",
			Help:      "Discrete viseme cues delivered to the blend engine.",
		}),
		PoseSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pose_records_sent_total",
			Help:      "Pose records sent to the session server.",
		}),
		PoseDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pose_records_dropped_total",
			Help:      "Pose records dropped by the outbound rate cap.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "WebSocket reconnect attempts.",
		}),
		PendingUtterances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_utterances",
			Help:      "Utterances waiting for their second half.",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_queue_depth",
			Help:      "Ready utterances waiting behind the current playback.",
		}),
	}
}

// Observe wires the collectors to bus events so the core stays unaware of
// metrics entirely.
func (m *Metrics) Observe(b *bus.EventBus) {
	b.Subscribe(bus.EventTypeUtteranceReady, func(bus.Event) { m.UtterancesReady.Inc() })
	b.Subscribe(bus.EventTypePlaybackDone, func(bus.Event) { m.UtterancesPlayed.Inc() })
	b.Subscribe(bus.EventTypePlaybackFailed, func(bus.Event) {
		m.UtterancesPlayed.Inc()
		m.PlaybackFailures.Inc()
	})
	b.Subscribe(bus.EventTypeVisemeFired, func(bus.Event) { m.VisemesFired.Inc() })
	b.Subscribe(bus.EventTypePoseSent, func(bus.Event) { m.PoseSent.Inc() })
	b.Subscribe(bus.EventTypePoseDropped, func(bus.Event) { m.PoseDropped.Inc() })
	b.Subscribe(bus.EventTypeDisconnected, func(bus.Event) { m.Reconnects.Inc() })
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background.
func (m *Metrics) Serve(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log := logger.With().Str("component", "metrics").Logger()
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()
}
