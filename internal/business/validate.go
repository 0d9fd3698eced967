package business

import (
	"fmt"
	"time"

	"github.com/glowdesk/concierge/internal/timetext"
)

// Validate checks a candidate (date, time) against the booking rules.
// Returns ok, the first failing field ("date" or "time") and a user-facing
// message. Order of checks: date parses, time parses, not in the past,
// same-day cutoff, business hours (both endpoints inclusive).
func (c *Config) Validate(dateStr, timeStr string, now time.Time) (bool, string, string) {
	startH, startM, err := timetext.ParseClock(c.BusinessHours.Start)
	if err != nil {
		startH, startM = 9, 0
	}
	endH, endM, err := timetext.ParseClock(c.BusinessHours.End)
	if err != nil {
		endH, endM = 19, 0
	}
	cutH, cutM, err := timetext.ParseClock(c.SameDayCutoff)
	if err != nil {
		cutH, cutM = 17, 0
	}

	bookingDate, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return false, "date", "That date doesn't look valid. Please try again."
	}

	bookingH, bookingM, err := timetext.ParseClock(timeStr)
	if err != nil {
		return false, "time", "That time doesn't look valid. Please share a time like 3 PM or 15:30."
	}

	nowUTC := now.UTC()
	today := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)

	if bookingDate.Before(today) {
		return false, "date", "That date is in the past. Please choose a future date."
	}

	bookingMinutes := bookingH*60 + bookingM

	if bookingDate.Equal(today) && bookingMinutes < cutH*60+cutM {
		return false, "time", fmt.Sprintf("Same-day bookings are available only after %02d:%02d.", cutH, cutM)
	}

	if bookingMinutes < startH*60+startM || bookingMinutes > endH*60+endM {
		return false, "time", fmt.Sprintf("We're open from %02d:%02d to %02d:%02d.", startH, startM, endH, endM)
	}

	return true, "", ""
}
