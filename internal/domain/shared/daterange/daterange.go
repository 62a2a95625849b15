package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

// DateRange represents a half-open interval of calendar days [CheckIn, CheckOut).
// Both bounds are midnight UTC values produced by Date or ParseFlexible.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Days builds a range of n days starting at start. n below 1 is treated as 1.
func Days(start time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	start = Midnight(start)
	return DateRange{CheckIn: start, CheckOut: start.AddDate(0, 0, n)}
}

// Month returns the range covering every day of the given month.
func Month(year int, month time.Month) DateRange {
	first := Date(year, month, 1)
	return DateRange{CheckIn: first, CheckOut: first.AddDate(0, 1, 0)}
}

// Year returns the range covering every day of the given year.
func Year(year int) DateRange {
	first := Date(year, time.January, 1)
	return DateRange{CheckIn: first, CheckOut: first.AddDate(1, 0, 0)}
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return DaysBetween(dr.CheckIn, dr.CheckOut)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return Overlaps(dr.CheckIn, dr.CheckOut, other.CheckIn, other.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Midnight(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// LastDay is the final occupied day of the range (CheckOut minus one day).
func (dr DateRange) LastDay() time.Time {
	return dr.CheckOut.AddDate(0, 0, -1)
}

// CoversMonth reports whether any calendar month touched by the range equals
// month, in any year.
func (dr DateRange) CoversMonth(month time.Month) bool {
	if dr.Validate() != nil {
		return false
	}
	last := dr.LastDay()
	cursor := Date(dr.CheckIn.Year(), dr.CheckIn.Month(), 1)
	end := Date(last.Year(), last.Month(), 1)
	for !cursor.After(end) {
		if cursor.Month() == month {
			return true
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	return false
}

// Overlaps is the half-open interval test aStart < bEnd && aEnd > bStart.
// A range ending on the day another starts does not overlap it.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	a, b = Midnight(a), Midnight(b)
	return int(b.Sub(a).Hours() / 24)
}
