// Package metrics exposes Prometheus counters for bot activity.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"instabot/pkg/logger"
	"instabot/pkg/models"
)

// Metrics groups the bot's collectors. A nil *Metrics discards every
// observation.
type Metrics struct {
	actions   *prometheus.CounterVec
	skips     *prometheus.CounterVec
	pauses    *prometheus.CounterVec
	campaigns *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instabot_actions_total",
			Help: "Live actions by verb and outcome",
		}, []string{"verb", "outcome"}),
		skips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instabot_candidates_skipped_total",
			Help: "Candidates skipped by eligibility checks",
		}, []string{"reason"}),
		pauses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instabot_throttle_pauses_total",
			Help: "Cooldowns taken because a budget window was full",
		}, []string{"window"}),
		campaigns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "instabot_campaigns_started_total",
			Help: "Campaign runs started",
		}, []string{"campaign"}),
	}
}

func (m *Metrics) ObserveAction(verb models.Verb, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(string(verb), outcome).Inc()
}

func (m *Metrics) ObserveSkip(reason string) {
	if m == nil {
		return
	}
	m.skips.WithLabelValues(reason).Inc()
}

// ObservePause counts a throttle pause; window is the rolling window that
// was full.
func (m *Metrics) ObservePause(window time.Duration) {
	if m == nil {
		return
	}
	m.pauses.WithLabelValues(windowLabel(window)).Inc()
}

func (m *Metrics) ObserveCampaign(name string) {
	if m == nil {
		return
	}
	m.campaigns.WithLabelValues(name).Inc()
}

func windowLabel(w time.Duration) string {
	switch w {
	case time.Hour:
		return "hour"
	case 24 * time.Hour:
		return "day"
	default:
		return w.String()
	}
}

// Serve exposes gatherer on addr at /metrics until ctx ends.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
