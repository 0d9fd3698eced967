// Package timetext converts free-form date/time phrases and structured hints
// into canonical YYYY-MM-DD / HH:MM values.
package timetext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	re12Hour    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)$`)
	re24Hour    = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	reHourOnly  = regexp.MustCompile(`^(\d{1,2})$`)
	reAmPmIn    = regexp.MustCompile(`\b(\d{1,2})(:\d{2})?\s*(am|pm)\b`)
	re24In      = regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d\b`)
	reHourCtx   = regexp.MustCompile(`\b(at|around|by)\s*\d{1,2}\b`)
	reBareHour  = regexp.MustCompile(`^\d{1,2}$`)
	reAnyNumber = regexp.MustCompile(`\b\d{1,2}\b`)
)

// Day-part buckets map vague phrases onto representative slots.
var buckets = []struct {
	word string
	hhmm string
}{
	{"morning", "10:00"},
	{"afternoon", "14:00"},
	{"evening", "18:00"},
	{"night", "19:30"},
}

// NormalizeTime converts a time phrase to 24-hour HH:MM.
// "6 pm" -> "18:00", "6:30pm" -> "18:30", "15:30" -> "15:30", "6" -> "06:00".
func NormalizeTime(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}

	for _, b := range buckets {
		if strings.Contains(t, b.word) {
			return b.hhmm, true
		}
	}

	t = strings.ReplaceAll(t, " ", "")

	if m := re12Hour.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 12 || minute > 59 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if m := re24Hour.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if m := reHourOnly.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour <= 23 {
			return fmt.Sprintf("%02d:00", hour), true
		}
	}

	return "", false
}

// InferTime extracts a normalized time from user text, but only when the text
// actually mentions one. Prevents reading random numbers as times.
func InferTime(text string) (string, bool) {
	if !MentionsTime(text) {
		return "", false
	}

	t := strings.ToLower(text)

	for _, b := range buckets {
		if strings.Contains(t, b.word) {
			return b.hhmm, true
		}
	}

	if m := reAmPmIn.FindString(t); m != "" {
		return NormalizeTime(m)
	}
	if m := re24In.FindString(t); m != "" {
		return NormalizeTime(m)
	}
	if m := reAnyNumber.FindString(t); m != "" {
		return NormalizeTime(m)
	}
	return "", false
}

// MentionsTime reports whether the message likely contains time information.
func MentionsTime(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}

	for _, b := range buckets {
		if strings.Contains(t, b.word) {
			return true
		}
	}
	if reAmPmIn.MatchString(t) {
		return true
	}
	if re24In.MatchString(t) {
		return true
	}
	// bare hour needs context ("at 6", "around 6") or a message that is just a number
	if reHourCtx.MatchString(t) {
		return true
	}
	return reBareHour.MatchString(t)
}

// ParseClock splits canonical or loose clock text into hour and minute.
// Accepts "18:30", "6pm", "6 pm", "6:30 pm" and bare hours.
func ParseClock(text string) (hour, minute int, err error) {
	hhmm, ok := NormalizeTime(text)
	if !ok {
		return 0, 0, fmt.Errorf("timetext: unsupported time format %q", text)
	}
	parts := strings.SplitN(hhmm, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute, nil
}

// FormatTime renders canonical HH:MM as a 12-hour display string: "18:00" -> "6:00 PM".
func FormatTime(hhmm string) string {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return hhmm
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return hhmm
	}

	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, suffix)
}
