package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DealMetrics содержит метрики жизненного цикла предложений.
type DealMetrics struct {
	// Счётчики переходов
	dealsCreated   prometheus.Counter
	dealsAccepted  prometheus.Counter
	dealsPaid      prometheus.Counter
	dealsExpired   prometheus.Counter
	dealsCancelled prometheus.Counter

	// Отказы проверки уведомлений по причинам
	notificationRejected *prometheus.CounterVec

	// Гистограмма времени подтверждения оплаты
	confirmDuration prometheus.Histogram

	// Счётчики событий журнала и outbox
	journalEvents prometheus.Counter
	outboxEvents  prometheus.Counter

	// Незавершённые интеграции с системой заказов
	reconcilePending prometheus.Gauge
}

// NewDealMetrics создаёт новый экземпляр метрик жизненного цикла.
func NewDealMetrics() *DealMetrics {
	return newDealMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newDealMetricsWithRegisterer(registerer prometheus.Registerer) *DealMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &DealMetrics{
		dealsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_created_total",
			Help: "Total number of deals created",
		}),
		dealsAccepted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_accepted_total",
			Help: "Total number of deals accepted by buyers",
		}),
		dealsPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_paid_total",
			Help: "Total number of deals confirmed as paid",
		}),
		dealsExpired: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_expired_total",
			Help: "Total number of deals observed as expired",
		}),
		dealsCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_cancelled_total",
			Help: "Total number of deals cancelled by the gateway",
		}),
		notificationRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "deals_notification_rejected_total",
			Help: "Total number of rejected payment notifications grouped by reason",
		}, []string{"reason"}),
		confirmDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "deals_confirm_duration_seconds",
			Help:    "Duration of payment confirmation handling in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		journalEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_journal_events_total",
			Help: "Total number of journal events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "deals_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		reconcilePending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "deals_reconcile_pending",
			Help: "Number of paid deals awaiting downstream order creation",
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

// RecordDealCreated увеличивает счётчик созданных предложений.
func (m *DealMetrics) RecordDealCreated() {
	m.dealsCreated.Inc()
}

// RecordDealAccepted увеличивает счётчик подтверждённых предложений.
func (m *DealMetrics) RecordDealAccepted() {
	m.dealsAccepted.Inc()
}

// RecordDealPaid увеличивает счётчик оплаченных предложений.
func (m *DealMetrics) RecordDealPaid() {
	m.dealsPaid.Inc()
}

// RecordDealExpired увеличивает счётчик истёкших предложений.
func (m *DealMetrics) RecordDealExpired() {
	m.dealsExpired.Inc()
}

// RecordDealCancelled увеличивает счётчик отменённых предложений.
func (m *DealMetrics) RecordDealCancelled() {
	m.dealsCancelled.Inc()
}

// RecordNotificationRejected увеличивает счётчик отказов по причине.
func (m *DealMetrics) RecordNotificationRejected(reason string) {
	m.notificationRejected.WithLabelValues(reason).Inc()
}

// RecordConfirmDuration записывает время обработки подтверждения оплаты.
func (m *DealMetrics) RecordConfirmDuration(duration time.Duration) {
	m.confirmDuration.Observe(duration.Seconds())
}

// RecordJournalEvent увеличивает счётчик событий журнала.
func (m *DealMetrics) RecordJournalEvent() {
	m.journalEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *DealMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordReconcilePending увеличивает число незавершённых интеграций.
func (m *DealMetrics) RecordReconcilePending() {
	m.reconcilePending.Inc()
}

// RecordReconcileResolved уменьшает число незавершённых интеграций.
func (m *DealMetrics) RecordReconcileResolved() {
	m.reconcilePending.Dec()
}
