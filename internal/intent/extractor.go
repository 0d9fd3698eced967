package intent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparsable marks classifier output that could not be decoded as the
// expected JSON shape. Callers count it against the failure budget rather
// than surfacing it.
var ErrUnparsable = errors.New("intent: unparsable classifier output")

// Extractor turns a raw user message into a structured extraction.
type Extractor interface {
	Extract(ctx context.Context, userText string) (Extraction, error)
}

// decodeExtraction parses model output into an Extraction, tolerating
// markdown code fences around the JSON body.
func decodeExtraction(raw string) (Extraction, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	// Some models wrap JSON in prose; grab the outermost object.
	if !strings.HasPrefix(body, "{") {
		start := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return Extraction{}, ErrUnparsable
		}
		body = body[start : end+1]
	}

	var e Extraction
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return Extraction{}, ErrUnparsable
	}
	e.Normalize()
	return e, nil
}
