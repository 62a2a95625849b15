package stays

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/shared/events"
)

var (
	ErrNotFound         = errors.New("stays: not found")
	ErrConflict         = errors.New("stays: conflicting update")
	ErrPermissionDenied = errors.New("stays: permission denied")
)

type StayID int64

type ApartmentID int64

type Linen string

const (
	LinenIncluded    Linen = "included"
	LinenNotIncluded Linen = "not_included"
)

// Valid reports whether l is one of the two enumerated values or absent.
func (l Linen) Valid() bool {
	switch l {
	case "", LinenIncluded, LinenNotIncluded:
		return true
	}
	return false
}

// Stay is a single guest booking recorded against an apartment.
type Stay struct {
	ID            StayID
	OwnerID       string
	ApartmentID   ApartmentID
	ApartmentName string

	GuestName string
	Phone     string
	Email     string
	Address   string

	// CheckIn and CheckOut are optional calendar dates; legacy records may
	// carry neither.
	CheckIn     *time.Time
	CheckOut    *time.Time
	NightsCount int
	Year        int

	PeopleCount int
	Linen       Linen
	Notes       string

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version counts revisions. Repository.Update writes only when the
	// stored version is still LoadedVersion.
	Version int64
	events.EventRecorder
}

// ListOptions narrows a repository listing; only the apartment is filtered
// by the store, year and month filtering happens in Apply.
type ListOptions struct {
	ApartmentID *ApartmentID
}

type Repository interface {
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Stay, error)
	ByID(ctx context.Context, ownerID string, id StayID) (*Stay, error)
	Create(ctx context.Context, stay *Stay) error
	Update(ctx context.Context, stay *Stay) error
	Delete(ctx context.Context, ownerID string, id StayID) error
}

// Interval derives the half-open occupancy range of the stay.
//
// Both dates present and ordered are used as-is. With only a check-in (or an
// unordered pair) the range spans max(1, NightsCount) days. With only a
// check-out the stay is assumed to cover the night before. Without dates
// there is no interval.
func (s Stay) Interval() (daterange.DateRange, bool) {
	switch {
	case s.CheckIn != nil && !s.CheckIn.IsZero():
		start := daterange.Midnight(*s.CheckIn)
		if s.CheckOut != nil && !s.CheckOut.IsZero() {
			end := daterange.Midnight(*s.CheckOut)
			if end.After(start) {
				return daterange.DateRange{CheckIn: start, CheckOut: end}, true
			}
		}
		return daterange.Days(start, s.NightsCount), true
	case s.CheckOut != nil && !s.CheckOut.IsZero():
		end := daterange.Midnight(*s.CheckOut)
		return daterange.DateRange{CheckIn: end.AddDate(0, 0, -1), CheckOut: end}, true
	}
	return daterange.DateRange{}, false
}

// Params carry the editable fields of a stay as entered by the owner.
type Params struct {
	OwnerID     string
	ApartmentID ApartmentID
	GuestName   string
	Phone       string
	Email       string
	Address     string
	CheckIn     *time.Time
	CheckOut    *time.Time
	NightsCount int
	Year        int
	PeopleCount int
	Linen       Linen
	Notes       string
}

// NewStay validates params against the entry-form rules. The store assigns
// the id; call MarkRecorded once it has.
func NewStay(p Params, now time.Time) (*Stay, error) {
	s := &Stay{OwnerID: strings.TrimSpace(p.OwnerID), CreatedAt: now.UTC(), UpdatedAt: now.UTC(), Version: 1}
	if s.OwnerID == "" {
		return nil, errors.New("stays: owner id required")
	}
	if err := s.apply(p, now); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkRecorded records the creation event after the store assigned an id.
func (s *Stay) MarkRecorded() {
	s.Record(StayRecorded{StayID: s.ID, OwnerID: s.OwnerID, ApartmentID: s.ApartmentID, Range: s.rangeOrZero(), At: s.CreatedAt})
}

// Revise replaces the editable fields, keeping identity and ownership.
func (s *Stay) Revise(p Params, now time.Time) error {
	if err := s.apply(p, now); err != nil {
		return err
	}
	s.UpdatedAt = now.UTC()
	s.Version++
	s.Record(StayRevised{StayID: s.ID, OwnerID: s.OwnerID, ApartmentID: s.ApartmentID, Range: s.rangeOrZero(), At: s.UpdatedAt})
	return nil
}

// LoadedVersion is the version the store held when this copy was read,
// valid after a single Revise.
func (s *Stay) LoadedVersion() int64 { return s.Version - 1 }

// MarkRemoved records the deletion event; the repository removes the row.
func (s *Stay) MarkRemoved(now time.Time) {
	s.Record(StayRemoved{StayID: s.ID, OwnerID: s.OwnerID, ApartmentID: s.ApartmentID, At: now.UTC()})
}

func (s *Stay) apply(p Params, now time.Time) error {
	if p.ApartmentID <= 0 {
		return &ValidationError{Field: "apartment_id", Reason: "must be a positive integer"}
	}
	name := strings.TrimSpace(p.GuestName)
	if name == "" {
		return &ValidationError{Field: "guest_name", Reason: "is required"}
	}
	if p.PeopleCount <= 0 {
		return &ValidationError{Field: "people_count", Reason: "must be positive"}
	}
	if !p.Linen.Valid() {
		return &ValidationError{Field: "linen", Reason: "must be included or not_included"}
	}

	var checkIn, checkOut *time.Time
	if p.CheckIn != nil && !p.CheckIn.IsZero() {
		d := daterange.Midnight(*p.CheckIn)
		checkIn = &d
	}
	if p.CheckOut != nil && !p.CheckOut.IsZero() {
		d := daterange.Midnight(*p.CheckOut)
		checkOut = &d
	}

	nights := p.NightsCount
	if checkIn != nil && checkOut != nil {
		if !checkOut.After(*checkIn) {
			return &ValidationError{Field: "check_out", Reason: "must be after check_in"}
		}
		nights = daterange.DaysBetween(*checkIn, *checkOut)
	}
	if nights <= 0 {
		return &ValidationError{Field: "nights_count", Reason: "must be positive"}
	}

	year := p.Year
	if year == 0 && checkIn != nil {
		year = checkIn.Year()
	}
	if year == 0 && checkOut != nil {
		year = checkOut.Year()
	}
	if err := FormYearBounds(now).Check("year", year); err != nil {
		return err
	}

	s.ApartmentID = p.ApartmentID
	s.GuestName = name
	s.Phone = strings.TrimSpace(p.Phone)
	s.Email = strings.TrimSpace(p.Email)
	s.Address = strings.TrimSpace(p.Address)
	s.CheckIn = checkIn
	s.CheckOut = checkOut
	s.NightsCount = nights
	s.Year = year
	s.PeopleCount = p.PeopleCount
	s.Linen = p.Linen
	s.Notes = strings.TrimSpace(p.Notes)
	return nil
}

func (s *Stay) rangeOrZero() daterange.DateRange {
	r, _ := s.Interval()
	return r
}
