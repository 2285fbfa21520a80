package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidNumber = errors.New("invalid_number")

// looseDecimal accepts a JSON number, a numeric string or an empty value,
// the way form inputs submit amounts. Empty and null decode as zero.
type looseDecimal struct {
	decimal.Decimal
}

func (l *looseDecimal) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		l.Decimal = decimal.Zero
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errInvalidNumber
		}
		raw = []byte(strings.TrimSpace(s))
	}
	if len(raw) == 0 {
		l.Decimal = decimal.Zero
		return nil
	}
	value, err := decimal.NewFromString(string(raw))
	if err != nil {
		return errInvalidNumber
	}
	l.Decimal = value
	return nil
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}
