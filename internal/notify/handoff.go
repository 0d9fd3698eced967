package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glowdesk/concierge/pkg/logging"
)

// HandoffService emails staff when the assistant gives up on a conversation.
type HandoffService struct {
	email        EmailSender
	staffEmail   string
	businessName string
	logger       *logging.Logger
	now          func() time.Time
}

// NewHandoffService creates a handoff notifier. A nil email sender makes it
// log-only, so the engine never has to care whether email is configured.
func NewHandoffService(email EmailSender, staffEmail, businessName string, logger *logging.Logger) *HandoffService {
	if logger == nil {
		logger = logging.Default()
	}
	return &HandoffService{
		email:        email,
		staffEmail:   staffEmail,
		businessName: businessName,
		logger:       logger,
		now:          time.Now,
	}
}

// NotifyHandoff alerts staff that a guest needs a human.
func (s *HandoffService) NotifyHandoff(ctx context.Context, identity, lastText string) error {
	s.logger.Warn("conversation handed off to staff", "identity", identity)

	if s.email == nil || s.staffEmail == "" {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "A guest needs a human to take over.\n\n")
	fmt.Fprintf(&body, "Guest: %s\n", identity)
	fmt.Fprintf(&body, "Time: %s\n", s.now().UTC().Format(time.RFC1123))
	if lastText != "" {
		fmt.Fprintf(&body, "Last message: %q\n", lastText)
	}
	fmt.Fprintf(&body, "\nReply to the guest directly on their channel.\n")

	msg := EmailMessage{
		To:      s.staffEmail,
		Subject: fmt.Sprintf("[%s] Guest needs assistance: %s", s.businessName, identity),
		Body:    body.String(),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: handoff email: %w", err)
	}
	return nil
}
