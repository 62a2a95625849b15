package daterange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoPrefix = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)
	dmySlash  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// fallbackLayouts are tried in order once the ISO and DD/MM/YYYY forms fail.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"2006/01/02",
	"02.01.2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Mon Jan 2 2006",
	"Mon, 2 Jan 2006",
}

// Date builds the midnight UTC value of a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight drops the time of day, keeping the calendar date as seen in t's location.
func Midnight(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseFlexible accepts an ISO date (anything starting with YYYY-MM-DD), a
// DD/MM/YYYY date, or one of a handful of common textual layouts and returns
// the calendar date at midnight. It never panics; ok is false on failure.
func ParseFlexible(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		if t, ok := fromParts(m[1], m[2], m[3]); ok {
			return t, true
		}
		return time.Time{}, false
	}
	if m := dmySlash.FindStringSubmatch(s); m != nil {
		return fromParts(m[3], m[2], m[1])
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Midnight(t), true
		}
	}
	return time.Time{}, false
}

// MustParse is ParseFlexible for literals known to be valid.
func MustParse(raw string) time.Time {
	t, ok := ParseFlexible(raw)
	if !ok {
		panic(fmt.Sprintf("daterange: cannot parse %q", raw))
	}
	return t
}

func fromParts(ys, ms, ds string) (time.Time, bool) {
	y, errY := strconv.Atoi(ys)
	m, errM := strconv.Atoi(ms)
	d, errD := strconv.Atoi(ds)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := Date(y, time.Month(m), d)
	// time.Date normalizes 31/02 into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// FormatISO renders the storage form YYYY-MM-DD.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// FormatLong renders the document form, e.g. "10 June 2024".
func FormatLong(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), t.Month().String(), t.Year())
}

// FormatShort renders the listing form, e.g. "10/06/2024".
func FormatShort(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
