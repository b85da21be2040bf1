package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики ядра checkout и обработки вебхуков.
type CheckoutMetrics struct {
	// Счётчики операций checkout.
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutAborted   *prometheus.CounterVec

	// Счётчики обработки вебхуков.
	webhookAccepted prometheus.Counter
	webhookReplayed prometheus.Counter
	webhookRejected prometheus.Counter
	webhookIgnored  prometheus.Counter

	// Гистограммы времени выполнения.
	checkoutDuration prometheus.Histogram
	webhookDuration  prometheus.Histogram

	// Счётчики событий timeline/outbox.
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для checkout в полёте.
	activeCheckouts prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик checkout.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_started_total",
			Help: "Total number of checkout attempts started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_completed_total",
			Help: "Total number of checkouts that produced a pending order and gateway intent",
		}),
		checkoutAborted: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_aborted_total",
			Help: "Total number of aborted checkouts grouped by reason",
		}, []string{"reason"}),
		webhookAccepted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_accepted_total",
			Help: "Total number of payment webhooks that promoted an order",
		}),
		webhookReplayed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_replayed_total",
			Help: "Total number of duplicate webhook deliveries resolved as no-ops",
		}),
		webhookRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_rejected_total",
			Help: "Total number of webhooks rejected due to signature mismatch or bad payload",
		}),
		webhookIgnored: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_webhook_ignored_total",
			Help: "Total number of webhooks with event types this service does not act on",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout orchestration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		webhookDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_webhook_duration_seconds",
			Help:    "Duration of webhook processing in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeCheckouts: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_checkouts",
			Help: "Number of checkout requests currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCheckoutStarted увеличивает счётчик начатых checkout и gauge активных.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	m.checkoutStarted.Inc()
	m.activeCheckouts.Inc()
}

// RecordCheckoutCompleted увеличивает счётчик успешных checkout.
func (m *CheckoutMetrics) RecordCheckoutCompleted() {
	m.checkoutCompleted.Inc()
}

// RecordCheckoutAborted увеличивает счётчик прерванных checkout по причине.
func (m *CheckoutMetrics) RecordCheckoutAborted(reason string) {
	m.checkoutAborted.WithLabelValues(reason).Inc()
}

// RecordCheckoutFinished уменьшает gauge активных checkout.
func (m *CheckoutMetrics) RecordCheckoutFinished() {
	m.activeCheckouts.Dec()
}

// RecordCheckoutDuration записывает время оркестрации checkout.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordWebhookAccepted увеличивает счётчик промоций по вебхуку.
func (m *CheckoutMetrics) RecordWebhookAccepted() {
	m.webhookAccepted.Inc()
}

// RecordWebhookReplayed увеличивает счётчик повторных доставок.
func (m *CheckoutMetrics) RecordWebhookReplayed() {
	m.webhookReplayed.Inc()
}

// RecordWebhookRejected увеличивает счётчик отклонённых вебхуков.
func (m *CheckoutMetrics) RecordWebhookRejected() {
	m.webhookRejected.Inc()
}

// RecordWebhookIgnored увеличивает счётчик событий, которые сервис не обрабатывает.
func (m *CheckoutMetrics) RecordWebhookIgnored() {
	m.webhookIgnored.Inc()
}

// RecordWebhookDuration записывает время обработки вебхука.
func (m *CheckoutMetrics) RecordWebhookDuration(duration time.Duration) {
	m.webhookDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *CheckoutMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
