package intent

import (
	"fmt"
	"strings"

	"github.com/glowdesk/concierge/internal/business"
)

// buildSystemPrompt renders the classifier instructions with the business
// context baked in. The model must reply with JSON only; anything else is
// treated as an extraction failure.
func buildSystemPrompt(biz *business.Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the virtual receptionist for %s, located at %s.\n", biz.Name, biz.Location)
	fmt.Fprintf(&b, "Business hours: %s to %s (%s).\n", biz.BusinessHours.Start, biz.BusinessHours.End, biz.Timezone)
	fmt.Fprintf(&b, "Services offered: %s.\n\n", strings.Join(biz.Services, ", "))

	b.WriteString(`Classify the customer's message and extract booking fields.

Allowed intents:
- booking_request: wants to book an appointment
- booking_confirm: answering yes / confirming
- booking_cancel: wants to cancel, or answering no
- booking_modify: wants to change details of an in-progress booking
- booking_reschedule: wants to move an existing appointment
- booking_status: asks about an existing booking
- faq_hours, faq_address, faq_services, faq_pricing: questions about the business
- talk_to_human: asks for a person
- inquiry: a question that does not fit the faq intents
- fallback: anything else

Respond with ONLY a JSON object, no prose, no markdown:
{"intent": "", "service": "", "date": "", "time": "", "ref_id": "", "faq_topic": "", "confidence": 0.0}

Leave fields you cannot extract as empty strings. Copy date and time phrases
verbatim; do not convert them.`)

	return b.String()
}
