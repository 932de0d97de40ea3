package handlers

import (
	"strconv"
	"strings"
	"time"
)

// problems collects field validation messages in submission order
type problems []string

func (p *problems) requireText(value, message string) {
	if strings.TrimSpace(value) == "" {
		*p = append(*p, message)
	}
}

func (p *problems) requireNumber(value *float64, message string) {
	if value == nil {
		*p = append(*p, message)
	}
}

// decimalText is an amount typed by a person: "150.50", "150,50" or a JSON number
type decimalText string

func (d *decimalText) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*d = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*d = decimalText(raw)
	return nil
}

// requireDecimal parses value with either decimal separator
func (p *problems) requireDecimal(value decimalText, missing, invalid string) float64 {
	text := strings.TrimSpace(string(value))
	if text == "" {
		*p = append(*p, missing)
		return 0
	}
	n, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
	if err != nil {
		*p = append(*p, invalid)
		return 0
	}
	return n
}

// parseDate accepts RFC 3339 timestamps and plain dates; empty input yields the zero time
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
