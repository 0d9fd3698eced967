package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingEmail struct {
	sent []EmailMessage
}

func (c *capturingEmail) Send(_ context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestNotifyHandoffSendsEmail(t *testing.T) {
	email := &capturingEmail{}
	svc := NewHandoffService(email, "staff@glow.example", "Glow Desk", nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	err := svc.NotifyHandoff(context.Background(), "+15550001111", "I give up, nothing works")
	require.NoError(t, err)

	require.Len(t, email.sent, 1)
	msg := email.sent[0]
	assert.Equal(t, "staff@glow.example", msg.To)
	assert.Contains(t, msg.Subject, "Glow Desk")
	assert.Contains(t, msg.Subject, "+15550001111")
	assert.Contains(t, msg.Body, "I give up, nothing works")
	assert.Contains(t, msg.Body, "+15550001111")
}

func TestNotifyHandoffWithoutEmailIsLogOnly(t *testing.T) {
	svc := NewHandoffService(nil, "", "Glow Desk", nil)
	assert.NoError(t, svc.NotifyHandoff(context.Background(), "+15550001111", "help"))
}
