// Package metrics exposes prometheus instrumentation for the sync engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

const (
	PushResultSucceeded     = "succeeded"
	PushResultTransient     = "failed_transient"
	PushResultTerminal      = "failed_terminal"
	PushResultNotConfigured = "not_configured"
)

type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics captures sync and fan-out health signals.
type SyncMetrics struct {
	syncRuns       *prometheus.CounterVec
	syncDuration   *prometheus.HistogramVec
	itemsFetched   prometheus.Counter
	itemsUpserted  prometheus.Counter
	pushAttempts   *prometheus.CounterVec
	pushResults    *prometheus.CounterVec
	scheduledGauge prometheus.Gauge
	timerFires     prometheus.Counter
	service        string
	env            string
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig initializes the singleton on first call; later calls
// return the existing instance.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the singleton. Tests that need live
// counters should build their own instance against a fresh registry via
// newSyncMetrics instead of re-triggering default registration.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "catalogsync"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "development"
	}
	labels := prometheus.Labels{"service": service, "env": env}

	m := &SyncMetrics{
		service: service,
		env:     env,
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "catalogsync_runs_total",
			Help:        "Sync runs by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "catalogsync_run_duration_seconds",
			Help:        "Duration of one tenant sync run.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"outcome"}),
		itemsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "catalogsync_items_fetched_total",
			Help:        "Catalog items fetched from the source.",
			ConstLabels: labels,
		}),
		itemsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "catalogsync_items_upserted_total",
			Help:        "Catalog items upserted into local storage.",
			ConstLabels: labels,
		}),
		pushAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "catalogsync_provider_push_attempts_total",
			Help:        "Individual push attempts per provider.",
			ConstLabels: labels,
		}, []string{"provider"}),
		pushResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "catalogsync_provider_push_results_total",
			Help:        "Terminal push results per provider and classification.",
			ConstLabels: labels,
		}, []string{"provider", "result"}),
		scheduledGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "catalogsync_scheduled_tenants",
			Help:        "Tenants with a live recurring sync timer.",
			ConstLabels: labels,
		}),
		timerFires: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "catalogsync_timer_fires_total",
			Help:        "Recurring timer fires across all tenants.",
			ConstLabels: labels,
		}),
	}

	registerer.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.itemsFetched,
		m.itemsUpserted,
		m.pushAttempts,
		m.pushResults,
		m.scheduledGauge,
		m.timerFires,
	)

	return m
}

func (m *SyncMetrics) IncRun(outcome string) { m.syncRuns.WithLabelValues(outcome).Inc() }
func (m *SyncMetrics) ObserveRun(outcome string, d time.Duration) {
	m.syncDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
func (m *SyncMetrics) AddFetched(n int)  { m.itemsFetched.Add(float64(n)) }
func (m *SyncMetrics) AddUpserted(n int) { m.itemsUpserted.Add(float64(n)) }
func (m *SyncMetrics) IncPushAttempt(provider string) {
	m.pushAttempts.WithLabelValues(provider).Inc()
}
func (m *SyncMetrics) IncPushResult(provider, result string) {
	m.pushResults.WithLabelValues(provider, result).Inc()
}
func (m *SyncMetrics) SetScheduledTenants(n int) { m.scheduledGauge.Set(float64(n)) }
func (m *SyncMetrics) IncTimerFire()             { m.timerFires.Inc() }
