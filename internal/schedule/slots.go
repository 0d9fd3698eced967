// Package schedule answers "is this slot free" and "what are the nearest
// free slots" against the booking occupancy table.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/concierge/internal/business"
	"github.com/glowdesk/concierge/internal/timetext"
)

// Occupancy reports whether a slot is held by a live booking.
type Occupancy interface {
	SlotTaken(ctx context.Context, date, hhmm string) (bool, error)
}

// Suggestions holds ordered free-slot candidates for the requested day and,
// when the day is exhausted, the following morning.
type Suggestions struct {
	SameDay []string
	NextDay []string
}

// Calculator searches the business-hours grid for free slots.
type Calculator struct {
	cfg       *business.Config
	occupancy Occupancy
}

// NewCalculator builds a calculator over the given occupancy source.
func NewCalculator(cfg *business.Config, occupancy Occupancy) *Calculator {
	return &Calculator{cfg: cfg, occupancy: occupancy}
}

// IsSlotTaken reports whether any PENDING or CONFIRMED booking holds the slot.
func (c *Calculator) IsSlotTaken(ctx context.Context, date, hhmm string) (bool, error) {
	return c.occupancy.SlotTaken(ctx, date, hhmm)
}

const nextDayProbeLimit = 20

// SuggestAround collects up to count free same-day slots nearest to the
// anchor, searching outward in slot-duration steps (0, -1, +1, -2, +2, ...)
// within business hours. When the anchor is at or past closing, or no
// same-day slot is free, it also probes the next morning from opening time,
// returning up to min(3, count) next-day slots.
func (c *Calculator) SuggestAround(ctx context.Context, date, anchor string, count int) (Suggestions, error) {
	var out Suggestions
	if count <= 0 {
		return out, nil
	}

	step := c.cfg.SlotDurationMinutes
	startMin, err := clockMinutes(c.cfg.BusinessHours.Start)
	if err != nil {
		return out, err
	}
	endMin, err := clockMinutes(c.cfg.BusinessHours.End)
	if err != nil {
		return out, err
	}
	baseMin, err := clockMinutes(anchor)
	if err != nil {
		return out, err
	}

	atOrPastClosing := baseMin >= endMin

	if baseMin < startMin {
		baseMin = startMin
	}
	if baseMin > endMin {
		baseMin = endMin
	}

	seen := make(map[string]struct{})
	for _, offset := range searchOffsets(50) {
		if len(out.SameDay) >= count {
			break
		}
		candidate := baseMin + offset*step
		if candidate < startMin || candidate > endMin {
			continue
		}
		hhmm := minutesToClock(candidate)
		if _, dup := seen[hhmm]; dup {
			continue
		}
		seen[hhmm] = struct{}{}

		taken, err := c.occupancy.SlotTaken(ctx, date, hhmm)
		if err != nil {
			return out, fmt.Errorf("schedule: probe %s %s: %w", date, hhmm, err)
		}
		if !taken {
			out.SameDay = append(out.SameDay, hhmm)
		}
	}

	if atOrPastClosing || len(out.SameDay) == 0 {
		nextDate, err := nextCalendarDay(date)
		if err != nil {
			return out, nil
		}
		limit := count
		if limit > 3 {
			limit = 3
		}
		morning := startMin
		for attempts := 0; len(out.NextDay) < limit && attempts < nextDayProbeLimit; attempts++ {
			hhmm := minutesToClock(morning)
			taken, err := c.occupancy.SlotTaken(ctx, nextDate, hhmm)
			if err != nil {
				return out, fmt.Errorf("schedule: probe %s %s: %w", nextDate, hhmm, err)
			}
			if !taken {
				out.NextDay = append(out.NextDay, hhmm)
			}
			morning += step
		}
	}

	return out, nil
}

// searchOffsets returns 0, -1, +1, -2, +2, ... so nearer slots are tried
// first and earlier slots win ties.
func searchOffsets(n int) []int {
	offsets := make([]int, 0, n)
	offsets = append(offsets, 0)
	for step := 1; len(offsets) < n; step++ {
		offsets = append(offsets, -step, step)
	}
	return offsets
}

func clockMinutes(hhmm string) (int, error) {
	h, m, err := timetext.ParseClock(hhmm)
	if err != nil {
		return 0, err
	}
	return h*60 + m, nil
}

func minutesToClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

func nextCalendarDay(date string) (string, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, 1).Format("2006-01-02"), nil
}
