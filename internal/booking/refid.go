package booking

import (
	"regexp"
	"strings"
)

var refIDPattern = regexp.MustCompile(`\bGLOW-[A-Z0-9]{8}\b`)

// ExtractRefID finds a booking reference id inside free text, if present.
func ExtractRefID(text string) string {
	if text == "" {
		return ""
	}
	return refIDPattern.FindString(strings.ToUpper(text))
}
