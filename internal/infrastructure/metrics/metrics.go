package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/gardenledger/internal/domain"
)

const namespace = "gardenledger"

// Metrics holds all Prometheus metrics. It implements usecase.MetricsRecorder.
type Metrics struct {
	// Journal metrics
	JournalsOpened    prometheus.Counter
	JournalsCommitted prometheus.Counter
	JournalsRejected  *prometheus.CounterVec
	JournalsDiscarded prometheus.Counter
	EntriesAdded      *prometheus.CounterVec
	CommitDuration    prometheus.Histogram
	EntriesPerJournal prometheus.Histogram

	// Ledger state
	AccountBalance    *prometheus.GaugeVec
	SnapshotsImported prometheus.Counter

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		JournalsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_opened_total",
			Help:      "Total number of journals opened",
		}),
		JournalsCommitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_committed_total",
			Help:      "Total number of journals committed",
		}),
		JournalsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journals_rejected_total",
				Help:      "Total number of rejected commits by reason",
			},
			[]string{"reason"},
		),
		JournalsDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_discarded_total",
			Help:      "Total number of journals discarded",
		}),
		EntriesAdded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_added_total",
				Help:      "Total number of entries added to open journals",
			},
			[]string{"kind"},
		),
		CommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Duration of journal commits",
			Buckets:   prometheus.DefBuckets,
		}),
		EntriesPerJournal: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entries_per_journal",
			Help:      "Number of entries in committed journals",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 32},
		}),

		AccountBalance: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "account_balance",
				Help:      "Current account balance",
			},
			[]string{"account", "classification"},
		),
		SnapshotsImported: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_imported_total",
			Help:      "Total number of snapshot imports",
		}),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
	}
}

func (m *Metrics) JournalOpened() {
	m.JournalsOpened.Inc()
}

func (m *Metrics) EntryAdded(kind domain.EntryKind) {
	m.EntriesAdded.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) JournalCommitted(entries int, duration time.Duration) {
	m.JournalsCommitted.Inc()
	m.EntriesPerJournal.Observe(float64(entries))
	m.CommitDuration.Observe(duration.Seconds())
}

func (m *Metrics) JournalRejected(reason string) {
	m.JournalsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) JournalDiscarded() {
	m.JournalsDiscarded.Inc()
}

func (m *Metrics) SnapshotImported() {
	m.SnapshotsImported.Inc()
}

// SetBalance publishes a balance gauge. Gauges are float64, so very large or
// very precise balances are approximated.
func (m *Metrics) SetBalance(account string, classification domain.Classification, balance decimal.Decimal) {
	m.AccountBalance.WithLabelValues(account, string(classification)).Set(balance.InexactFloat64())
}
