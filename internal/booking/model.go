// Package booking holds the appointment lifecycle model and its persistence.
package booking

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the booking lifecycle state. CANCELLED and EXPIRED are terminal;
// a new booking must be created instead of re-opening one.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// PaymentStatus is the deposit sub-state of a booking.
type PaymentStatus string

const (
	PaymentNotRequired     PaymentStatus = "NOT_REQUIRED"
	PaymentRequired        PaymentStatus = "REQUIRES_PAYMENT"
	PaymentCheckoutCreated PaymentStatus = "CHECKOUT_CREATED"
	PaymentPaid            PaymentStatus = "PAID"
	PaymentExpired         PaymentStatus = "EXPIRED"
	PaymentRefunded        PaymentStatus = "REFUNDED"
	PaymentLate            PaymentStatus = "LATE_PAYMENT"
)

// Booking is one appointment attempt. Ref IDs are externally shareable.
type Booking struct {
	RefID    string
	Identity string
	Channel  string
	Service  string
	Date     string // YYYY-MM-DD
	Time     string // HH:MM, 24-hour
	Status   Status

	PaymentRequired    bool
	PaymentStatus      PaymentStatus
	DepositAmountCents int
	Currency           string
	CheckoutSessionID  string
	PaymentIntentID    string
	PaymentExpiresAt   *time.Time
	PaidAt             *time.Time
	PaymentAttempts    int
	PaymentLastError   string

	CalendarEventID string

	FirstReminderSent  bool
	SecondReminderSent bool
	ReminderConfirmed  bool
	NoShowRisk         bool

	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// RefIDPrefix namespaces booking reference ids.
const RefIDPrefix = "GLOW-"

// NewRefID generates a short shareable reference like GLOW-3FA85F64.
func NewRefID() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return RefIDPrefix + raw[:8]
}

// StartsAt resolves the booking's slot to an absolute instant in UTC,
// interpreting date and time in the business timezone.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	dt, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Time, loc)
	if err != nil {
		return time.Time{}, err
	}
	return dt.UTC(), nil
}

// Live reports whether the booking still occupies its slot.
func (b *Booking) Live() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}
