package timetext

import (
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var (
	reQualifiedDay = regexp.MustCompile(`\b(next|coming|this)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reBareDay      = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	reNumericDate  = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?\b`)
	reMonthName    = regexp.MustCompile(`\b(jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(t)?(ember)?|oct(ober)?|nov(ember)?|dec(ember)?)\b`)

	datePhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(day after tomorrow|tomorrow|today)\b`),
		regexp.MustCompile(`\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`\bcoming\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		regexp.MustCompile(`\bthis\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
		reBareDay,
		regexp.MustCompile(`\bnext week\b`),
	}
)

var naturalDates = newNaturalParser()

func newNaturalParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseDate converts a date phrase to an ISO YYYY-MM-DD string. The reference
// time should already be in the business timezone; relative phrases resolve
// forward from it.
func ParseDate(text string, now time.Time) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return "", false
	}

	today := now

	// ISO dates pass straight through.
	if d, err := time.ParseInLocation("2006-01-02", cleaned, now.Location()); err == nil {
		return d.Format("2006-01-02"), true
	}

	switch {
	case strings.Contains(cleaned, "day after tomorrow"):
		return today.AddDate(0, 0, 2).Format("2006-01-02"), true
	case strings.Contains(cleaned, "tomorrow"):
		return today.AddDate(0, 0, 1).Format("2006-01-02"), true
	case strings.Contains(cleaned, "today"):
		return today.Format("2006-01-02"), true
	}

	if m := reQualifiedDay.FindStringSubmatch(cleaned); m != nil {
		target := weekdays[m[2]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7

		// "this monday" on a Monday means today; "next monday" means +7.
		if m[1] != "this" && ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format("2006-01-02"), true
	}

	if m := reBareDay.FindString(cleaned); m != "" {
		target := weekdays[m]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead).Format("2006-01-02"), true
	}

	if reNumericDate.MatchString(cleaned) {
		if d, ok := parseNumericDate(reNumericDate.FindString(cleaned), today); ok {
			return d, true
		}
	}

	// Natural-language fallback ("march 3rd", "in two days", ...).
	if r, err := naturalDates.Parse(cleaned, today); err == nil && r != nil {
		return r.Time.Format("2006-01-02"), true
	}

	return "", false
}

// parseNumericDate handles US-ordered MM/DD and MM/DD/YYYY forms.
func parseNumericDate(s string, now time.Time) (string, bool) {
	s = strings.ReplaceAll(s, "-", "/")
	layouts := []string{"01/02/2006", "1/2/2006", "01/02/06", "1/2/06"}
	for _, layout := range layouts {
		if d, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return d.Format("2006-01-02"), true
		}
	}
	// year omitted: assume this year, rolling past dates into next year
	for _, layout := range []string{"01/02", "1/2"} {
		if d, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			d = d.AddDate(now.Year(), 0, 0)
			if d.Before(now.Truncate(24 * time.Hour)) {
				d = d.AddDate(1, 0, 0)
			}
			return d.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ExtractDatePhrase isolates the date-like fragment from a message so a
// trailing time ("next monday at 3 pm") does not confuse date parsing.
func ExtractDatePhrase(text string) string {
	t := strings.ToLower(text)
	for _, p := range datePhrasePatterns {
		if m := p.FindString(t); m != "" {
			return m
		}
	}
	return text
}

// MentionsDate reports whether the message likely contains date information.
func MentionsDate(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	if reBareDay.MatchString(t) {
		return true
	}
	for _, phrase := range []string{"today", "tomorrow", "day after tomorrow", "next week", "this week"} {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	for _, prefix := range []string{"next ", "coming ", "this "} {
		if strings.Contains(t, prefix) {
			return true
		}
	}
	if reNumericDate.MatchString(t) {
		return true
	}
	return reMonthName.MatchString(t)
}
