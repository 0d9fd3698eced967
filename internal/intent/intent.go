// Package intent defines the closed set of conversation intents, the
// structured extraction payload returned by the classifier, and the
// deterministic normalizer that corrects the classifier's label against
// session state.
package intent

import "strings"

// Intent is a classifier label. The set is closed; anything outside it
// normalizes to IntentFallback.
type Intent string

const (
	IntentBookingRequest    Intent = "booking_request"
	IntentBookingConfirm    Intent = "booking_confirm"
	IntentBookingCancel     Intent = "booking_cancel"
	IntentBookingModify     Intent = "booking_modify"
	IntentBookingReschedule Intent = "booking_reschedule"
	IntentBookingStatus     Intent = "booking_status"
	IntentFAQHours          Intent = "faq_hours"
	IntentFAQAddress        Intent = "faq_address"
	IntentFAQServices       Intent = "faq_services"
	IntentFAQPricing        Intent = "faq_pricing"
	IntentTalkToHuman       Intent = "talk_to_human"
	IntentInquiry           Intent = "inquiry"
	IntentFallback          Intent = "fallback"
)

var known = map[Intent]struct{}{
	IntentBookingRequest:    {},
	IntentBookingConfirm:    {},
	IntentBookingCancel:     {},
	IntentBookingModify:     {},
	IntentBookingReschedule: {},
	IntentBookingStatus:     {},
	IntentFAQHours:          {},
	IntentFAQAddress:        {},
	IntentFAQServices:       {},
	IntentFAQPricing:        {},
	IntentTalkToHuman:       {},
	IntentInquiry:           {},
	IntentFallback:          {},
}

// Parse maps an untrusted label to a member of the closed set.
func Parse(raw string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := known[in]; ok {
		return in
	}
	return IntentFallback
}

// IsFAQ reports whether the intent is a direct FAQ answer.
func (i Intent) IsFAQ() bool {
	switch i {
	case IntentFAQHours, IntentFAQAddress, IntentFAQServices, IntentFAQPricing:
		return true
	}
	return false
}

// Extraction is the structured output of the classifier for one message.
// All fields are untrusted: date and time must go through the normalizer and
// validator before use.
type Extraction struct {
	Intent     Intent  `json:"-"`
	RawIntent  string  `json:"intent"`
	Service    string  `json:"service"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	RefID      string  `json:"ref_id"`
	FAQTopic   string  `json:"faq_topic"`
	Confidence float64 `json:"confidence"`
}

// Normalize clamps the raw label into the closed intent set and trims the
// free-text fields.
func (e *Extraction) Normalize() {
	e.Intent = Parse(e.RawIntent)
	e.Service = strings.TrimSpace(strings.ToLower(e.Service))
	e.Date = strings.TrimSpace(e.Date)
	e.Time = strings.TrimSpace(e.Time)
	e.RefID = strings.TrimSpace(strings.ToUpper(e.RefID))
}
