// Package session owns per-conversation state: the FSM position, pending
// booking fields, idempotency bookkeeping and the failure/handoff budget.
package session

import "time"

// State is the conversation FSM position.
type State string

const (
	StateIdle                 State = "IDLE"
	StateCollecting           State = "COLLECTING"
	StateConfirming           State = "CONFIRMING"
	StatePaymentPending       State = "PAYMENT_PENDING"
	StateCancelConfirm        State = "CANCEL_CONFIRM"
	StateRescheduleCollecting State = "RESCHEDULE_COLLECTING"
	StateRescheduleConfirm    State = "RESCHEDULE_CONFIRM"
)

// processedIDLimit bounds the idempotency window.
const processedIDLimit = 20

// Session is one conversation identity's durable state. Sessions are created
// lazily on first contact and reused across bookings, never deleted.
type Session struct {
	Identity string
	Channel  string
	State    State

	PendingService string
	PendingDate    string
	PendingTime    string

	PendingBookingRef string

	RescheduleTargetRef string
	RescheduleNewDate   string
	RescheduleNewTime   string

	LastQuestion string

	ProcessedMessageIDs []string

	FailCount      int
	HandoffOffered bool

	ExpiredLastTurn  bool
	ExpiredFromState State

	LastReminderBookingRef string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates an idle session for the identity.
func New(identity, channel string, now time.Time) *Session {
	return &Session{
		Identity:  identity,
		Channel:   channel,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to IDLE, clearing every flow-scoped field and the
// failure counter. The expiry one-shot flags are left alone; timeout handling
// manages those separately.
func (s *Session) Reset(now time.Time) {
	s.State = StateIdle
	s.LastQuestion = ""

	s.PendingService = ""
	s.PendingDate = ""
	s.PendingTime = ""
	s.PendingBookingRef = ""

	s.RescheduleTargetRef = ""
	s.RescheduleNewDate = ""
	s.RescheduleNewTime = ""

	s.FailCount = 0
	s.HandoffOffered = false

	s.UpdatedAt = now
}

// Touch bumps the activity timestamp that drives expiry.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// MarkProcessed records a message id in the bounded idempotency window.
// It returns true when the id was already present, meaning the delivery is a
// retry and the turn must not run again.
func (s *Session) MarkProcessed(messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, id := range s.ProcessedMessageIDs {
		if id == messageID {
			return true
		}
	}
	s.ProcessedMessageIDs = append(s.ProcessedMessageIDs, messageID)
	if n := len(s.ProcessedMessageIDs); n > processedIDLimit {
		s.ProcessedMessageIDs = s.ProcessedMessageIDs[n-processedIDLimit:]
	}
	return false
}

// MissingFields lists the booking fields still unset, in ask order.
func (s *Session) MissingFields() []string {
	var missing []string
	if s.PendingService == "" {
		missing = append(missing, "service")
	}
	if s.PendingDate == "" {
		missing = append(missing, "date")
	}
	if s.PendingTime == "" {
		missing = append(missing, "time")
	}
	return missing
}
