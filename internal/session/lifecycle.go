package session

import "time"

// State-dependent inactivity timeouts. States not listed never expire.
const (
	CollectingTimeout    = 30 * time.Minute
	ConfirmingTimeout    = 10 * time.Minute
	RescheduleTimeout    = 30 * time.Minute
	CancelConfirmTimeout = 10 * time.Minute
)

// handoffThreshold is the failure count at which a human handoff is offered.
const handoffThreshold = 3

// IsExpired reports whether the session sat too long in a timeout-bearing
// state. Naive timestamps are treated as UTC before comparison.
func (s *Session) IsExpired(now time.Time) bool {
	if s.UpdatedAt.IsZero() {
		return false
	}

	idle := now.UTC().Sub(s.UpdatedAt.UTC())

	switch s.State {
	case StateCollecting:
		return idle > CollectingTimeout
	case StateConfirming:
		return idle > ConfirmingTimeout
	case StateRescheduleCollecting, StateRescheduleConfirm:
		return idle > RescheduleTimeout
	case StateCancelConfirm:
		return idle > CancelConfirmTimeout
	default:
		return false
	}
}

// ApplyTimeoutReset resets an expired session to IDLE, remembering the state
// the user was leaving so the next turn can explain what happened. Must run
// before intent normalization on every turn. Returns true when a reset fired.
func (s *Session) ApplyTimeoutReset(now time.Time) bool {
	if !s.IsExpired(now) {
		return false
	}
	prev := s.State
	s.Reset(now)
	s.ExpiredLastTurn = true
	s.ExpiredFromState = prev
	return true
}

// ClearExpiredFlags consumes the one-shot expiry marker.
func (s *Session) ClearExpiredFlags() {
	s.ExpiredLastTurn = false
	s.ExpiredFromState = ""
}

// RecordFailure counts a structurally-invalid extraction or a validation
// failure toward the handoff budget.
func (s *Session) RecordFailure(now time.Time) {
	s.FailCount++
	s.UpdatedAt = now
}

// ShouldHandoff reports whether the failure budget is spent and a handoff has
// not been offered yet.
func (s *Session) ShouldHandoff() bool {
	return s.FailCount >= handoffThreshold && !s.HandoffOffered
}

// OfferHandoff marks the one-time handoff as delivered.
func (s *Session) OfferHandoff(now time.Time) {
	s.HandoffOffered = true
	s.UpdatedAt = now
}

// ResetFailures zeroes the failure budget after any forward progress.
func (s *Session) ResetFailures() {
	s.FailCount = 0
	s.HandoffOffered = false
}
