package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout, reconciliation and webhook outcomes.
type PaymentMetrics struct {
	reconcileDuration *prometheus.HistogramVec
	reconcileOutcome  *prometheus.CounterVec
	feeSplit          *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a recorder whose methods are no-ops.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconcileDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Time spent resolving a checkout session to an order.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16},
	}, []string{"outcome"})
	reconcileOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_total",
		Help: "Checkout session reconciliations by outcome and last step reached.",
	}, []string{"outcome", "step"})
	feeSplit := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_split_total",
		Help: "Checkout sessions by fee split outcome.",
	}, []string{"outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook events by type and result.",
	}, []string{"type", "result"})
	reg.MustRegister(reconcileDuration, reconcileOutcome, feeSplit, webhookEvents)
	return &PaymentMetrics{
		reconcileDuration: reconcileDuration,
		reconcileOutcome:  reconcileOutcome,
		feeSplit:          feeSplit,
		webhookEvents:     webhookEvents,
	}
}

// ObserveReconcile records one reconciliation.
func (m *PaymentMetrics) ObserveReconcile(outcome, step string, duration time.Duration) {
	if m == nil || m.reconcileOutcome == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.reconcileOutcome.WithLabelValues(outcome, normalizeLabel(step)).Inc()
	m.reconcileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncFeeSplit counts a fee split decision.
func (m *PaymentMetrics) IncFeeSplit(outcome string) {
	if m == nil || m.feeSplit == nil {
		return
	}
	m.feeSplit.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook counts a processed webhook event.
func (m *PaymentMetrics) IncWebhook(eventType, result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
