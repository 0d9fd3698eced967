package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTurnMetrics(reg)

	m.ObserveTurn("booking_pending", 0.04)
	m.ObserveTurn("booking_pending", 0.07)
	m.ObserveTurn("faq_hours", 0.01)
	m.ObserveLockBusy()
	m.ObserveHandoff()

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}

	turns := byName["concierge_engine_turns_total"]
	require.NotNil(t, turns)
	var pending float64
	for _, metric := range turns.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetValue() == "booking_pending" {
				pending = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, pending)

	busy := byName["concierge_engine_turn_lock_busy_total"]
	require.NotNil(t, busy)
	assert.Equal(t, 1.0, busy.GetMetric()[0].GetCounter().GetValue())
}

func TestPaymentAndReminderMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPaymentMetrics(reg).ObserveWebhook("checkout.session.completed", "confirmed")
	NewReminderMetrics(reg).ObserveSent("first")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 3)
}

func TestMetricsNilSafe(t *testing.T) {
	var tm *TurnMetrics
	tm.ObserveTurn("x", 0.1)
	tm.ObserveLockBusy()
	tm.ObserveHandoff()

	var pm *PaymentMetrics
	pm.ObserveCheckout("created")
	pm.ObserveWebhook("x", "y")

	var rm *ReminderMetrics
	rm.ObserveSent("first")
	rm.ObserveNoShowRisk()
}
