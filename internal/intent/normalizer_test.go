package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glowdesk/concierge/internal/session"
)

func TestNormalizeRescheduleStateForces(t *testing.T) {
	for _, state := range []session.State{session.StateRescheduleCollecting, session.StateRescheduleConfirm} {
		got := Normalize(IntentFallback, "uh what", state, false)
		assert.Equal(t, IntentBookingReschedule, got, string(state))

		got = Normalize(IntentFAQHours, "what are your hours", state, true)
		assert.Equal(t, IntentBookingReschedule, got, "even FAQ labels are overridden mid-reschedule")
	}
}

func TestNormalizeRescheduleVerb(t *testing.T) {
	tests := []struct {
		name         string
		raw          Intent
		text         string
		hasConfirmed bool
		want         Intent
	}{
		{"modify plus verb plus confirmed", IntentBookingModify, "can you move my appointment", true, IntentBookingReschedule},
		{"request plus verb plus confirmed", IntentBookingRequest, "I want to change it to friday", true, IntentBookingReschedule},
		{"verb without confirmed booking", IntentBookingRequest, "change it to friday", false, IntentBookingRequest},
		{"confirmed without verb", IntentBookingRequest, "book a facial friday", true, IntentBookingRequest},
		{"cancel never rewritten", IntentBookingCancel, "please shift it", true, IntentBookingCancel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.text, session.StateCollecting, tt.hasConfirmed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIdleModify(t *testing.T) {
	got := Normalize(IntentBookingModify, "different time please", session.StateIdle, true)
	assert.Equal(t, IntentBookingReschedule, got)

	got = Normalize(IntentBookingModify, "different time please", session.StateIdle, false)
	assert.Equal(t, IntentBookingModify, got)

	got = Normalize(IntentBookingModify, "different time please", session.StateCollecting, true)
	assert.Equal(t, IntentBookingModify, got, "mid-collection modify stays modify without a verb")
}

func TestNormalizePassthrough(t *testing.T) {
	for _, in := range []Intent{IntentFAQHours, IntentBookingStatus, IntentTalkToHuman, IntentFallback} {
		assert.Equal(t, in, Normalize(in, "hello", session.StateIdle, true))
	}
}
