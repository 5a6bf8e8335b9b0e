package parse

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// Separators commonly typed inside phone numbers: "0917 123-4567", "(02) 8123 4567".
	phoneSepRe = regexp.MustCompile(`[\s\-().]+`)
)

// Text trims and collapses internal whitespace.
func Text(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// Email normalizes an address for comparison: trimmed and lower-cased.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Phone strips formatting separators, keeping digits and a leading "+".
func Phone(raw string) string {
	return phoneSepRe.ReplaceAllString(strings.TrimSpace(raw), "")
}

// IP returns the first address of a comma separated forwarding header,
// or "" when it does not parse as an IP.
func IP(raw string) string {
	first := raw
	if i := strings.IndexByte(raw, ','); i >= 0 {
		first = raw[:i]
	}
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}

// DropoffDate parses a calendar date ("2006-01-02") or an RFC3339 timestamp
// and returns midnight UTC of that calendar day.
func DropoffDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse dropoff date: %q", raw)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// Optional trims raw and returns nil when nothing is left.
func Optional(raw string) *string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	return &s
}
