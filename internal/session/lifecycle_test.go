package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name  string
		state State
		idle  time.Duration
		want  bool
	}{
		{"idle never expires", StateIdle, 48 * time.Hour, false},
		{"payment pending never expires here", StatePaymentPending, 48 * time.Hour, false},
		{"collecting within window", StateCollecting, 29 * time.Minute, false},
		{"collecting at boundary", StateCollecting, 30 * time.Minute, false},
		{"collecting past window", StateCollecting, 31 * time.Minute, true},
		{"confirming past window", StateConfirming, 11 * time.Minute, true},
		{"confirming within window", StateConfirming, 9 * time.Minute, false},
		{"reschedule collecting past window", StateRescheduleCollecting, 31 * time.Minute, true},
		{"reschedule confirm within window", StateRescheduleConfirm, 29 * time.Minute, false},
		{"cancel confirm past window", StateCancelConfirm, 11 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("+15550001111", "whatsapp", testNow)
			s.State = tt.state
			assert.Equal(t, tt.want, s.IsExpired(testNow.Add(tt.idle)))
		})
	}
}

func TestIsExpiredZeroTimestamp(t *testing.T) {
	s := &Session{State: StateCollecting}
	assert.False(t, s.IsExpired(testNow))
}

func TestApplyTimeoutReset(t *testing.T) {
	s := New("+15550001111", "whatsapp", testNow)
	s.State = StateConfirming
	s.PendingService = "facial"
	s.PendingBookingRef = "GLOW-AAAA1111"

	later := testNow.Add(11 * time.Minute)
	assert.True(t, s.ApplyTimeoutReset(later))

	assert.Equal(t, StateIdle, s.State)
	assert.Empty(t, s.PendingService)
	assert.Empty(t, s.PendingBookingRef)
	assert.True(t, s.ExpiredLastTurn)
	assert.Equal(t, StateConfirming, s.ExpiredFromState)

	// second call is a no-op: the session is idle and fresh
	assert.False(t, s.ApplyTimeoutReset(later.Add(time.Minute)))
}

func TestApplyTimeoutResetNotExpired(t *testing.T) {
	s := New("+15550001111", "whatsapp", testNow)
	s.State = StateCollecting
	assert.False(t, s.ApplyTimeoutReset(testNow.Add(5*time.Minute)))
	assert.Equal(t, StateCollecting, s.State)
	assert.False(t, s.ExpiredLastTurn)
}

func TestClearExpiredFlags(t *testing.T) {
	s := New("+15550001111", "whatsapp", testNow)
	s.ExpiredLastTurn = true
	s.ExpiredFromState = StateCollecting

	s.ClearExpiredFlags()
	assert.False(t, s.ExpiredLastTurn)
	assert.Empty(t, string(s.ExpiredFromState))
}

func TestFailureBudget(t *testing.T) {
	s := New("+15550001111", "whatsapp", testNow)

	s.RecordFailure(testNow)
	s.RecordFailure(testNow)
	assert.False(t, s.ShouldHandoff())

	s.RecordFailure(testNow)
	assert.True(t, s.ShouldHandoff())

	s.OfferHandoff(testNow)
	assert.False(t, s.ShouldHandoff(), "handoff is offered at most once")

	s.RecordFailure(testNow)
	assert.False(t, s.ShouldHandoff())

	s.ResetFailures()
	assert.Zero(t, s.FailCount)
	s.RecordFailure(testNow)
	s.RecordFailure(testNow)
	s.RecordFailure(testNow)
	assert.True(t, s.ShouldHandoff(), "budget re-arms after forward progress")
}
