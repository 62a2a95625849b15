package stays

import (
	"errors"
	"testing"
	"time"

	"stayregister/internal/domain/shared/daterange"
)

func day(raw string) *time.Time {
	t := daterange.MustParse(raw)
	return &t
}

func TestIntervalUsesBothDates(t *testing.T) {
	s := Stay{CheckIn: day("2024-03-10"), CheckOut: day("2024-03-14"), NightsCount: 9}
	r, ok := s.Interval()
	if !ok {
		t.Fatalf("expected interval")
	}
	if !r.CheckIn.Equal(*s.CheckIn) || !r.CheckOut.Equal(*s.CheckOut) {
		t.Fatalf("interval = %v, want stored dates", r)
	}
	if r.Nights() != 4 {
		t.Fatalf("nights = %d, want 4", r.Nights())
	}
}

func TestIntervalFromCheckInAndNights(t *testing.T) {
	for _, n := range []int{1, 3, 12} {
		s := Stay{CheckIn: day("2024-12-30"), NightsCount: n}
		r, ok := s.Interval()
		if !ok {
			t.Fatalf("expected interval")
		}
		if r.Nights() != n || !r.CheckIn.Equal(*s.CheckIn) {
			t.Fatalf("n=%d: got %v", n, r)
		}
	}
	zero := Stay{CheckIn: day("2024-01-01")}
	if r, _ := zero.Interval(); r.Nights() != 1 {
		t.Fatalf("missing nights must yield one day, got %d", r.Nights())
	}
}

func TestIntervalFallbacks(t *testing.T) {
	onlyOut := Stay{CheckOut: day("2024-05-02")}
	r, ok := onlyOut.Interval()
	if !ok || !r.CheckIn.Equal(daterange.Date(2024, 5, 1)) {
		t.Fatalf("only check-out: %v %v", r, ok)
	}
	unordered := Stay{CheckIn: day("2024-05-10"), CheckOut: day("2024-05-08"), NightsCount: 2}
	r, ok = unordered.Interval()
	if !ok || !r.CheckOut.Equal(daterange.Date(2024, 5, 12)) {
		t.Fatalf("unordered dates should fall back to nights: %v", r)
	}
	if _, ok := (Stay{Year: 2020}).Interval(); ok {
		t.Fatalf("no dates must yield no interval")
	}
}

func TestNewStayValidation(t *testing.T) {
	now := daterange.Date(2024, 6, 1)
	base := Params{OwnerID: "owner", ApartmentID: 1, GuestName: "Ada", PeopleCount: 2, CheckIn: day("2024-06-10"), CheckOut: day("2024-06-15")}

	s, err := NewStay(base, now)
	if err != nil {
		t.Fatalf("NewStay: %v", err)
	}
	if s.NightsCount != 5 || s.Year != 2024 {
		t.Fatalf("derived nights/year = %d/%d", s.NightsCount, s.Year)
	}

	cases := map[string]func(p *Params){
		"check_out":    func(p *Params) { p.CheckOut = day("2024-06-10") },
		"people_count": func(p *Params) { p.PeopleCount = 0 },
		"guest_name":   func(p *Params) { p.GuestName = "  " },
		"linen":        func(p *Params) { p.Linen = "maybe" },
		"apartment_id": func(p *Params) { p.ApartmentID = 0 },
		"year":         func(p *Params) { p.CheckIn = day("2026-01-10"); p.CheckOut = day("2026-01-12") },
		"nights_count": func(p *Params) { p.CheckOut = nil; p.NightsCount = 0 },
	}
	for field, mutate := range cases {
		p := base
		mutate(&p)
		_, err := NewStay(p, now)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		if verr.Field != field {
			t.Errorf("%s: error names field %q", field, verr.Field)
		}
	}

	next := base
	next.CheckIn, next.CheckOut = day("2025-02-01"), day("2025-02-03")
	if _, err := NewStay(next, now); err != nil {
		t.Fatalf("next-year booking must be accepted by the form: %v", err)
	}
}

func TestStayEvents(t *testing.T) {
	now := daterange.Date(2024, 6, 1)
	s, err := NewStay(Params{OwnerID: "o", ApartmentID: 2, GuestName: "Bo", PeopleCount: 1, CheckIn: day("2024-06-01"), NightsCount: 2}, now)
	if err != nil {
		t.Fatalf("NewStay: %v", err)
	}
	s.ID = 7
	s.MarkRecorded()
	if err := s.Revise(Params{ApartmentID: 2, GuestName: "Bo", PeopleCount: 3, CheckIn: day("2024-06-01"), NightsCount: 3}, now); err != nil {
		t.Fatalf("Revise: %v", err)
	}
	s.MarkRemoved(now)
	evs := s.PendingEvents()
	if len(evs) != 3 {
		t.Fatalf("events = %d", len(evs))
	}
	names := []string{"stay.recorded", "stay.revised", "stay.removed"}
	for i, ev := range evs {
		if ev.EventName() != names[i] || ev.AggregateID() != "7" {
			t.Errorf("event %d = %s/%s", i, ev.EventName(), ev.AggregateID())
		}
	}
}

func TestReviseAdvancesVersion(t *testing.T) {
	now := daterange.Date(2024, 6, 1)
	s, err := NewStay(Params{OwnerID: "o", ApartmentID: 1, GuestName: "Bo", PeopleCount: 1, CheckIn: day("2024-06-01"), NightsCount: 2}, now)
	if err != nil {
		t.Fatalf("NewStay: %v", err)
	}
	if s.Version != 1 {
		t.Fatalf("new stay version = %d", s.Version)
	}
	if err := s.Revise(Params{ApartmentID: 1, GuestName: "Bo", PeopleCount: 2, CheckIn: day("2024-06-01"), NightsCount: 2}, now); err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if s.Version != 2 || s.LoadedVersion() != 1 {
		t.Fatalf("after revise version=%d loaded=%d", s.Version, s.LoadedVersion())
	}
}
