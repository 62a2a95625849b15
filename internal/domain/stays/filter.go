package stays

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"stayregister/internal/domain/shared/daterange"
)

// MinYear is the oldest year accepted by filters and the stay form.
var MinYear = 2000

// YearBounds is an inclusive year range.
type YearBounds struct {
	Min int
	Max int
}

// ConsultYearBounds limits consult/export filters to the current year.
func ConsultYearBounds(now time.Time) YearBounds {
	return YearBounds{Min: MinYear, Max: now.Year()}
}

// FormYearBounds admits forward bookings for next year, one wider than
// ConsultYearBounds.
func FormYearBounds(now time.Time) YearBounds {
	return YearBounds{Min: MinYear, Max: now.Year() + 1}
}

func (b YearBounds) Check(field string, year int) error {
	if year < b.Min || year > b.Max {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be between %d and %d", b.Min, b.Max)}
	}
	return nil
}

// RawFilter is filter input as received, before validation. Empty strings
// mean the axis is unconstrained.
type RawFilter struct {
	ApartmentID string
	Year        string
	Month       string
}

// Filter constrains a stay listing. Nil fields are unconstrained.
type Filter struct {
	ApartmentID *ApartmentID
	Year        *int
	Month       *time.Month
}

// ValidateFilter turns raw input into a Filter or returns the first
// *ValidationError; it never returns a partially validated filter.
func ValidateFilter(raw RawFilter, bounds YearBounds) (Filter, error) {
	var f Filter
	if s := strings.TrimSpace(raw.ApartmentID); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, &ValidationError{Field: "apartment_id", Reason: "must be a positive integer"}
		}
		apartment := ApartmentID(id)
		f.ApartmentID = &apartment
	}
	if s := strings.TrimSpace(raw.Year); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, &ValidationError{Field: "year", Reason: "must be an integer"}
		}
		if err := bounds.Check("year", year); err != nil {
			return Filter{}, err
		}
		f.Year = &year
	}
	if s := strings.TrimSpace(raw.Month); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return Filter{}, &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
		}
		month := time.Month(m)
		f.Month = &month
	}
	return f, nil
}

// Apply keeps the stays matching f and returns them sorted by recency.
// The input slice is not modified.
func Apply(list []*Stay, f Filter) []*Stay {
	out := make([]*Stay, 0, len(list))
	for _, s := range list {
		if s == nil {
			continue
		}
		if f.ApartmentID != nil && s.ApartmentID != *f.ApartmentID {
			continue
		}
		if f.matches(s) {
			out = append(out, s)
		}
	}
	SortByRecency(out)
	return out
}

func (f Filter) matches(s *Stay) bool {
	if f.Year == nil && f.Month == nil {
		return true
	}
	interval, ok := s.Interval()
	switch {
	case f.Year != nil && f.Month != nil:
		return ok && interval.Overlaps(daterange.Month(*f.Year, *f.Month))
	case f.Year != nil:
		if !ok {
			return s.Year == *f.Year
		}
		return interval.Overlaps(daterange.Year(*f.Year))
	default:
		return ok && interval.CoversMonth(*f.Month)
	}
}

// Pinned reports whether both year and month are set, returning them.
func (f Filter) Pinned() (int, time.Month, bool) {
	if f.Year == nil || f.Month == nil {
		return 0, 0, false
	}
	return *f.Year, *f.Month, true
}

// RecencyAnchor is check-in, else check-out, else 31 December of Year.
func (s Stay) RecencyAnchor() time.Time {
	if s.CheckIn != nil && !s.CheckIn.IsZero() {
		return daterange.Midnight(*s.CheckIn)
	}
	if s.CheckOut != nil && !s.CheckOut.IsZero() {
		return daterange.Midnight(*s.CheckOut)
	}
	return daterange.Date(s.Year, time.December, 31)
}

// CompareRecency orders most recent first, ties by descending id. It is a
// total order for stays with distinct ids and the only comparator used for
// listings.
func CompareRecency(a, b *Stay) int {
	ta, tb := a.RecencyAnchor(), b.RecencyAnchor()
	if c := tb.Compare(ta); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func SortByRecency(list []*Stay) {
	slices.SortStableFunc(list, CompareRecency)
}

// ChronologicalAnchor is the interval start, else check-out, else 1 January
// of Year.
func (s Stay) ChronologicalAnchor() time.Time {
	if interval, ok := s.Interval(); ok {
		return interval.CheckIn
	}
	if s.CheckOut != nil && !s.CheckOut.IsZero() {
		return daterange.Midnight(*s.CheckOut)
	}
	return daterange.Date(s.Year, time.January, 1)
}

// CompareChronological orders earliest first, ties by ascending id. Calendar
// colors and document cards follow this order.
func CompareChronological(a, b *Stay) int {
	if c := a.ChronologicalAnchor().Compare(b.ChronologicalAnchor()); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Chronological returns a sorted copy of list without nil entries.
func Chronological(list []*Stay) []*Stay {
	out := make([]*Stay, 0, len(list))
	for _, s := range list {
		if s != nil {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, CompareChronological)
	return out
}
