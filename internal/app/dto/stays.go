package dto

import (
	"time"

	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

type Interval struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Nights int    `json:"nights"`
}

// Stay is the listing payload. Dates are ISO; the *_display fields carry the
// short numeric form shown in listings.
type Stay struct {
	ID              int64     `json:"id"`
	ApartmentID     int64     `json:"apartment_id"`
	ApartmentName   string    `json:"apartment_name,omitempty"`
	GuestName       string    `json:"guest_name"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	CheckIn         string    `json:"check_in,omitempty"`
	CheckOut        string    `json:"check_out,omitempty"`
	CheckInDisplay  string    `json:"check_in_display,omitempty"`
	CheckOutDisplay string    `json:"check_out_display,omitempty"`
	NightsCount     int       `json:"nights_count"`
	Year            int       `json:"year"`
	PeopleCount     int       `json:"people_count"`
	Linen           string    `json:"linen,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	Interval        *Interval `json:"interval,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

type FilterEcho struct {
	ApartmentID *int64 `json:"apartment_id,omitempty"`
	Year        *int   `json:"year,omitempty"`
	Month       *int   `json:"month,omitempty"`
}

type StayCollection struct {
	Items  []Stay     `json:"items"`
	Total  int        `json:"total"`
	Filter FilterEcho `json:"filter"`
}

func MapStay(s *stays.Stay) Stay {
	if s == nil {
		return Stay{}
	}
	out := Stay{
		ID:            int64(s.ID),
		ApartmentID:   int64(s.ApartmentID),
		ApartmentName: s.ApartmentName,
		GuestName:     s.GuestName,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		NightsCount:   s.NightsCount,
		Year:          s.Year,
		PeopleCount:   s.PeopleCount,
		Linen:         string(s.Linen),
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
		Version:       s.Version,
	}
	if s.CheckIn != nil && !s.CheckIn.IsZero() {
		out.CheckIn = daterange.FormatISO(*s.CheckIn)
		out.CheckInDisplay = daterange.FormatShort(*s.CheckIn)
	}
	if s.CheckOut != nil && !s.CheckOut.IsZero() {
		out.CheckOut = daterange.FormatISO(*s.CheckOut)
		out.CheckOutDisplay = daterange.FormatShort(*s.CheckOut)
	}
	if r, ok := s.Interval(); ok {
		out.Interval = &Interval{
			Start:  daterange.FormatISO(r.CheckIn),
			End:    daterange.FormatISO(r.CheckOut),
			Nights: r.Nights(),
		}
	}
	return out
}

func MapStays(list []*stays.Stay) []Stay {
	out := make([]Stay, 0, len(list))
	for _, s := range list {
		if s != nil {
			out = append(out, MapStay(s))
		}
	}
	return out
}

func MapFilter(f stays.Filter) FilterEcho {
	var echo FilterEcho
	if f.ApartmentID != nil {
		id := int64(*f.ApartmentID)
		echo.ApartmentID = &id
	}
	if f.Year != nil {
		y := *f.Year
		echo.Year = &y
	}
	if f.Month != nil {
		m := int(*f.Month)
		echo.Month = &m
	}
	return echo
}
