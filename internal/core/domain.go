package core

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// MissingSpecialty is the normalized placeholder for an absent specialty value.
// It is never counted by the ranker.
const MissingSpecialty = "missing"

// MonthLabelLayout renders a month the way the range selector shows it ("Jan 2020").
const MonthLabelLayout = "Jan 2006"

type (
	// Month is one entry of the month index: a dense ordinal plus the
	// month's first instant and its display label.
	Month struct {
		Ordinal   int       `json:"ordinal"`
		Timestamp time.Time `json:"timestamp"`
		Label     string    `json:"label"`
	}

	// ClaimRecord is one immutable input row after normalization.
	ClaimRecord struct {
		Month           time.Time
		MonthOrdinal    int
		Payer           string
		ServiceCategory string
		Specialties     []string
		PaidAmount      decimal.Decimal
	}
)

var monthLayouts = []string{
	"2006-01-02",
	"2006-01",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/01",
	"01/2006",
	"Jan 2006",
	"January 2006",
}

// ParseMonth parses s with the accepted layouts and truncates it to the
// first day of its month in UTC.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingField
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateMonth(t), nil
		}
	}
	return time.Time{}, ErrInvalidMonth
}

// TruncateMonth returns the first instant of t's calendar month in UTC.
func TruncateMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats t for display.
func MonthLabel(t time.Time) string {
	return t.Format(MonthLabelLayout)
}

// NormalizeSpecialties splits a raw multi-valued specialty field into tokens.
// Unicode whitespace always separates tokens; extra delimiters (";" by default) are
// supplied by the caller. A field with no tokens becomes [MissingSpecialty].
func NormalizeSpecialties(raw string, delimiters string) []string {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(delimiters, r)
	})
	out := tokens[:0]
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return []string{MissingSpecialty}
	}
	return out
}
