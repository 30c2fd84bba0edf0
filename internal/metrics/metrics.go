package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeSessions    prometheus.Gauge
	sessionsFinished  *prometheus.CounterVec
	generatorDuration prometheus.Histogram
	generatorErrors   prometheus.Counter

	telegramSent     prometheus.Counter
	telegramReceived prometheus.Counter
	telegramErrors   prometheus.Counter

	archivesWritten prometheus.Counter
	archiveErrors   prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current open dialog session count.",
				},
			),
			sessionsFinished: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sessions_finished_total",
					Help: "Total finished sessions by finish reason.",
				},
				[]string{"reason"},
			),
			generatorDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "generator_call_duration_seconds",
					Help:    "Generator call duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			generatorErrors: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "generator_errors_total",
					Help: "Total failed generator calls.",
				},
			),
			telegramSent: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "telegram_messages_sent_total",
					Help: "Total outbound Telegram messages.",
				},
			),
			telegramReceived: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "telegram_messages_received_total",
					Help: "Total inbound Telegram updates handled.",
				},
			),
			telegramErrors: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "telegram_errors_total",
					Help: "Total Telegram transport errors.",
				},
			),
			archivesWritten: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "dialog_archives_written_total",
					Help: "Total dialog archives written to disk.",
				},
			),
			archiveErrors: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "dialog_archive_errors_total",
					Help: "Total failed dialog archive writes.",
				},
			),
		}

		prometheus.MustRegister(
			m.activeSessions,
			m.sessionsFinished,
			m.generatorDuration,
			m.generatorErrors,
			m.telegramSent,
			m.telegramReceived,
			m.telegramErrors,
			m.archivesWritten,
			m.archiveErrors,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func SessionFinished(reason string) {
	getMetrics().sessionsFinished.WithLabelValues(reason).Inc()
}

func RecordGeneratorCall(duration time.Duration, success bool) {
	m := getMetrics()
	m.generatorDuration.Observe(duration.Seconds())
	if !success {
		m.generatorErrors.Inc()
	}
}

func TelegramSent() {
	getMetrics().telegramSent.Inc()
}

func TelegramReceived() {
	getMetrics().telegramReceived.Inc()
}

func TelegramError() {
	getMetrics().telegramErrors.Inc()
}

func RecordArchive(success bool) {
	m := getMetrics()
	if success {
		m.archivesWritten.Inc()
	} else {
		m.archiveErrors.Inc()
	}
}
