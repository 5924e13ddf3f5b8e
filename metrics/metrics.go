// Package metrics exposes prometheus counters for the bot's domain events.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the counters updated by the orchestrator and services.
type Metrics struct {
	PhotosReceived   prometheus.Counter
	Enhancements     *prometheus.CounterVec // label: source (local, remote, local_fallback, failed)
	MembershipChecks *prometheus.CounterVec // label: result (verified, not_member, check_failed)
	DeliveryFailures prometheus.Counter
}

// New registers the bot's counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PhotosReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "enhancebot_photos_received_total",
			Help: "Photo submissions accepted for processing.",
		}),
		Enhancements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancebot_enhancements_total",
			Help: "Enhancement attempts by producing source.",
		}, []string{"source"}),
		MembershipChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enhancebot_membership_checks_total",
			Help: "Membership oracle lookups by normalized result.",
		}, []string{"result"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "enhancebot_delivery_failures_total",
			Help: "Enhanced photos that could not be sent back.",
		}),
	}
}

// Serve starts a /metrics listener on addr in the background. Errors are
// logged, never fatal: metrics are best-effort alongside the bot.
func Serve(addr string, gatherer prometheus.Gatherer, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics listener started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics listener failed")
		}
	}()
}
