// Package metrics exposes prometheus instruments for the conversation
// engine, the payment flow and the reminder sweep. All methods are nil-safe
// so callers can run without a registry wired.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics counts engine turns and their latency.
type TurnMetrics struct {
	turnsTotal    *prometheus.CounterVec
	turnLatency   prometheus.Histogram
	lockBusyTotal prometheus.Counter
	handoffTotal  prometheus.Counter
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "engine",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"intent"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "engine",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}),
		lockBusyTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "engine",
			Name:      "turn_lock_busy_total",
			Help:      "Turns rejected because the identity lock was held",
		}),
		handoffTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "engine",
			Name:      "handoff_total",
			Help:      "Sessions escalated to a human",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.lockBusyTotal, m.handoffTotal)
	return m
}

func (m *TurnMetrics) ObserveTurn(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *TurnMetrics) ObserveLockBusy() {
	if m == nil {
		return
	}
	m.lockBusyTotal.Inc()
}

func (m *TurnMetrics) ObserveHandoff() {
	if m == nil {
		return
	}
	m.handoffTotal.Inc()
}

// PaymentMetrics counts checkout and webhook outcomes.
type PaymentMetrics struct {
	checkoutTotal *prometheus.CounterVec
	webhookTotal  *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		checkoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "payments",
			Name:      "checkout_total",
			Help:      "Checkout sessions created, by status",
		}, []string{"status"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "payments",
			Name:      "webhook_total",
			Help:      "Stripe webhook events, by type and status",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkoutTotal, m.webhookTotal)
	return m
}

func (m *PaymentMetrics) ObserveCheckout(status string) {
	if m == nil {
		return
	}
	m.checkoutTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) ObserveWebhook(eventType, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(eventType, status).Inc()
}

// ReminderMetrics counts sweep activity.
type ReminderMetrics struct {
	sentTotal   *prometheus.CounterVec
	noShowTotal prometheus.Counter
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		sentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Reminders sent, by window",
		}, []string{"window"}),
		noShowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "reminders",
			Name:      "no_show_risk_total",
			Help:      "Bookings flagged as no-show risk",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sentTotal, m.noShowTotal)
	return m
}

func (m *ReminderMetrics) ObserveSent(window string) {
	if m == nil {
		return
	}
	m.sentTotal.WithLabelValues(window).Inc()
}

func (m *ReminderMetrics) ObserveNoShowRisk() {
	if m == nil {
		return
	}
	m.noShowTotal.Inc()
}
