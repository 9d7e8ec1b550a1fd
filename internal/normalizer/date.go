// Package normalizer turns raw statement cells into typed values: calendar
// dates in ISO form and signed decimal amounts.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when no date rule accepts the input.
var ErrInvalidDate = errors.New("invalid date")

// DateLayoutISO is the output layout of NormalizeDate.
const DateLayoutISO = "2006-01-02"

var (
	isoPrefixPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:$|[ T])`)
	usSlashPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})(?:$|\s)`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

// FallbackLayouts are tried, in order, when neither the ISO nor the US slash
// rule matches. Month-first layouts come before day-first ones.
var FallbackLayouts = []string{
	time.RFC3339,
	"2006/01/02",
	"2006/1/2",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"Mon, 02 Jan 2006",
	"Mon Jan 2 2006",
	"02.01.2006",
	"20060102",
}

type dateRule struct {
	name  string
	parse func(s string) (string, bool)
}

// dateRules are evaluated in order; the first rule that matches decides the
// result, even when the match is not a valid calendar date.
var dateRules = []dateRule{
	{name: "iso", parse: parseISOPrefix},
	{name: "us-slash", parse: parseUSSlash},
	{name: "fallback", parse: parseFallback},
}

// NormalizeDate converts raw to a YYYY-MM-DD calendar date. No timezone
// conversion is applied: a date-time keeps its written date.
func NormalizeDate(raw string) (string, error) {
	s := CleanDateString(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	for _, rule := range dateRules {
		out, matched := rule.parse(s)
		if !matched {
			continue
		}
		if out == "" {
			return "", fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, raw)
		}
		return out, nil
	}
	return "", fmt.Errorf("%w: unrecognized format %q", ErrInvalidDate, raw)
}

// CleanDateString trims and collapses internal whitespace.
func CleanDateString(s string) string {
	return spacePattern.ReplaceAllString(strings.TrimSpace(s), " ")
}

// parseISOPrefix returns matched=true with an empty result for ISO-shaped
// input that names an impossible day.
func parseISOPrefix(s string) (string, bool) {
	m := isoPrefixPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	return formatYMD(y, mo, d), true
}

func parseUSSlash(s string) (string, bool) {
	m := usSlashPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	mo, _ := strconv.Atoi(m[1])
	d, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	return formatYMD(y, mo, d), true
}

func parseFallback(s string) (string, bool) {
	for _, layout := range FallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayoutISO), true
		}
	}
	return "", false
}

// formatYMD returns "" when the triple is not a real calendar day.
func formatYMD(y, m, d int) string {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return ""
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return ""
	}
	return t.Format(DateLayoutISO)
}

// IsDate reports whether NormalizeDate accepts s.
func IsDate(s string) bool {
	_, err := NormalizeDate(s)
	return err == nil
}
