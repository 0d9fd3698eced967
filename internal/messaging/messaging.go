// Package messaging delivers outbound replies over the channel the guest
// wrote in on: WhatsApp via the Meta Cloud API, SMS via Twilio.
package messaging

import (
	"context"
	"fmt"

	"github.com/glowdesk/concierge/pkg/logging"
)

// Sender delivers one text message to one recipient.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Router picks the sender matching the conversation channel.
type Router struct {
	senders map[string]Sender
	logger  *logging.Logger
}

// NewRouter builds a channel router. Nil senders are skipped so a deployment
// can run WhatsApp-only or SMS-only.
func NewRouter(whatsapp, sms Sender, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	senders := map[string]Sender{}
	if whatsapp != nil {
		senders["whatsapp"] = whatsapp
	}
	if sms != nil {
		senders["sms"] = sms
	}
	return &Router{senders: senders, logger: logger}
}

// Send routes one message by channel name.
func (r *Router) Send(ctx context.Context, channel, identity, text string) error {
	s, ok := r.senders[channel]
	if !ok {
		return fmt.Errorf("messaging: no sender for channel %q", channel)
	}
	if err := s.SendText(ctx, identity, text); err != nil {
		return fmt.Errorf("messaging: send via %s: %w", channel, err)
	}
	r.logger.Info("outbound message sent", "channel", channel, "to", identity)
	return nil
}
