package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ingestedEventsCounter   *prometheus.CounterVec
	duplicateEventsCounter  prometheus.Counter
	timelineSizeGauge       prometheus.Gauge
	transfersCounter        *prometheus.CounterVec
	decryptionsCounter      *prometheus.CounterVec
	submittedWritesCounter  prometheus.Counter
	subscriptionDropCounter prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := Metrics{
		// metrics for event ingestion
		ingestedEventsCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_ingested_events_total", namespace),
			Help: "The number of ingested token events by kind",
		}, []string{"kind"}),
		duplicateEventsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_duplicate_events_total", namespace),
			Help: "The number of events dropped as duplicates",
		}),
		timelineSizeGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_timeline_size", namespace),
			Help: "The current number of events in the timeline",
		}),
		subscriptionDropCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_subscription_drops_total", namespace),
			Help: "The number of times the log subscription had to be re-established",
		}),
		// metrics for workflow outcomes
		transfersCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_transfers_total", namespace),
			Help: "The number of transfer workflow runs by outcome",
		}, []string{"outcome"}),
		decryptionsCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_balance_decryptions_total", namespace),
			Help: "The number of balance decryption workflow runs by outcome",
		}, []string{"outcome"}),
		submittedWritesCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_submitted_writes_total", namespace),
			Help: "The number of transactions submitted to the chain",
		}),
	}
	return &m
}

func (metrics *Metrics) IncIngestedEvents(kind string) {
	metrics.ingestedEventsCounter.WithLabelValues(kind).Inc()
}

func (metrics *Metrics) IncDuplicateEvents() {
	metrics.duplicateEventsCounter.Inc()
}

func (metrics *Metrics) SetTimelineSize(size int) {
	metrics.timelineSizeGauge.Set(float64(size))
}

func (metrics *Metrics) IncSubscriptionDrops() {
	metrics.subscriptionDropCounter.Inc()
}

func (metrics *Metrics) IncTransfers(outcome string) {
	metrics.transfersCounter.WithLabelValues(outcome).Inc()
}

func (metrics *Metrics) IncDecryptions(outcome string) {
	metrics.decryptionsCounter.WithLabelValues(outcome).Inc()
}

func (metrics *Metrics) IncSubmittedWrites() {
	metrics.submittedWritesCounter.Inc()
}
