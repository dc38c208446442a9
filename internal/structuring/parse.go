package structuring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

var (
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("structuring: empty model response")
	// ErrNoJSONObject is returned when no JSON object can be located.
	ErrNoJSONObject = errors.New("structuring: no JSON object in model response")
)

// ParseRecord turns the model's textual response into a validated,
// normalized record.
func ParseRecord(text string) (*models.StructuredRecord, error) {
	body, err := cleanJSON(text)
	if err != nil {
		return nil, err
	}
	if err := ValidateRecordJSON([]byte(body)); err != nil {
		return nil, err
	}
	var rec models.StructuredRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.Normalize()
	return &rec, nil
}

// cleanJSON strips markdown fences and any chatter around the outermost
// JSON object.
func cleanJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", ErrEmptyResponse
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}
