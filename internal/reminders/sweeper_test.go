package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/concierge/internal/booking"
	"github.com/glowdesk/concierge/internal/business"
)

type fakeBookings struct {
	confirmed []booking.Booking
	updated   []*booking.Booking
}

func (f *fakeBookings) ListConfirmed(_ context.Context) ([]booking.Booking, error) {
	return f.confirmed, nil
}

func (f *fakeBookings) Update(_ context.Context, b *booking.Booking) error {
	f.updated = append(f.updated, b)
	return nil
}

type fakeBinder struct {
	bound []string
}

func (f *fakeBinder) BindReminder(_ context.Context, identity, bookingRef string, _ time.Time) error {
	f.bound = append(f.bound, bookingRef)
	return nil
}

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, channel, identity, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

// sweepNow is a Tuesday noon; bookings are placed relative to it.
var sweepNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func confirmedBooking(ref, date, hhmm string) booking.Booking {
	return booking.Booking{
		RefID:    ref,
		Identity: "+15550001111",
		Channel:  "whatsapp",
		Service:  "facial",
		Date:     date,
		Time:     hhmm,
		Status:   booking.StatusConfirmed,
	}
}

func newSweepHarness(t *testing.T, bookings ...booking.Booking) (*Sweeper, *fakeBookings, *fakeBinder, *fakeMessenger) {
	t.Helper()
	store := &fakeBookings{confirmed: bookings}
	binder := &fakeBinder{}
	msgs := &fakeMessenger{}
	biz := &business.Config{
		Name:                "Glow Desk",
		Timezone:            "UTC",
		BusinessHours:       business.Hours{Start: "09:00", End: "19:00"},
		SlotDurationMinutes: 30,
	}
	sw := NewSweeper(store, binder, msgs, biz, nil, nil)
	sw.now = func() time.Time { return sweepNow }
	return sw, store, binder, msgs
}

func TestSweepSendsFirstReminderInsideWindow(t *testing.T) {
	// 22 hours out: inside the 24h window, outside the 2h window.
	sw, store, binder, msgs := newSweepHarness(t, confirmedBooking("GLOW-AAAA1111", "2026-03-11", "10:00"))

	require.NoError(t, sw.Sweep(context.Background()))

	require.Len(t, msgs.sent, 1)
	assert.Contains(t, msgs.sent[0], "Reminder")
	assert.Contains(t, msgs.sent[0], "10:00 AM")
	require.Len(t, store.updated, 1)
	assert.True(t, store.updated[0].FirstReminderSent)
	assert.False(t, store.updated[0].SecondReminderSent)
	assert.Equal(t, []string{"GLOW-AAAA1111"}, binder.bound)
}

func TestSweepSkipsBookingsBeyondFirstWindow(t *testing.T) {
	// Three days out: no reminder yet.
	sw, store, _, msgs := newSweepHarness(t, confirmedBooking("GLOW-AAAA1111", "2026-03-13", "10:00"))

	require.NoError(t, sw.Sweep(context.Background()))

	assert.Empty(t, msgs.sent)
	assert.Empty(t, store.updated)
}

func TestSweepSendsSecondReminderCloseToStart(t *testing.T) {
	// 90 minutes out, first reminder already sent yesterday.
	b := confirmedBooking("GLOW-AAAA1111", "2026-03-10", "13:30")
	b.FirstReminderSent = true
	sw, store, binder, msgs := newSweepHarness(t, b)

	require.NoError(t, sw.Sweep(context.Background()))

	require.Len(t, msgs.sent, 1)
	assert.Contains(t, msgs.sent[0], "today at 1:30 PM")
	require.Len(t, store.updated, 1)
	assert.True(t, store.updated[0].SecondReminderSent)
	assert.Equal(t, []string{"GLOW-AAAA1111"}, binder.bound)
}

func TestSweepDoesNotResendReminders(t *testing.T) {
	b := confirmedBooking("GLOW-AAAA1111", "2026-03-10", "13:30")
	b.FirstReminderSent = true
	b.SecondReminderSent = true
	sw, store, _, msgs := newSweepHarness(t, b)

	require.NoError(t, sw.Sweep(context.Background()))

	assert.Empty(t, msgs.sent)
	assert.Empty(t, store.updated)
}

func TestSweepFlagsNoShowRiskAfterStart(t *testing.T) {
	b := confirmedBooking("GLOW-AAAA1111", "2026-03-10", "11:00")
	b.FirstReminderSent = true
	sw, store, _, msgs := newSweepHarness(t, b)

	require.NoError(t, sw.Sweep(context.Background()))

	assert.Empty(t, msgs.sent)
	require.Len(t, store.updated, 1)
	assert.True(t, store.updated[0].NoShowRisk)
}

func TestSweepNoRiskWhenGuestConfirmed(t *testing.T) {
	b := confirmedBooking("GLOW-AAAA1111", "2026-03-10", "11:00")
	b.FirstReminderSent = true
	b.ReminderConfirmed = true
	sw, store, _, _ := newSweepHarness(t, b)

	require.NoError(t, sw.Sweep(context.Background()))
	assert.Empty(t, store.updated)
}

func TestSweepNoRiskWithoutAnyReminder(t *testing.T) {
	// Start passed but no reminder ever went out: nothing to judge the
	// guest's silence against.
	sw, store, _, _ := newSweepHarness(t, confirmedBooking("GLOW-AAAA1111", "2026-03-10", "11:00"))

	require.NoError(t, sw.Sweep(context.Background()))
	assert.Empty(t, store.updated)
}

func TestSweepCustomWindows(t *testing.T) {
	// 40 minutes out with a 1h second window.
	sw, store, _, msgs := newSweepHarness(t, confirmedBooking("GLOW-AAAA1111", "2026-03-10", "12:40"))
	sw.WithWindows(48*time.Hour, time.Hour)

	require.NoError(t, sw.Sweep(context.Background()))

	require.Len(t, msgs.sent, 1)
	assert.Contains(t, msgs.sent[0], "today")
	require.Len(t, store.updated, 1)
	assert.True(t, store.updated[0].SecondReminderSent)
}
