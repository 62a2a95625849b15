package stays

import (
	"errors"
	"testing"
	"time"

	"stayregister/internal/domain/shared/daterange"
)

func ptr[T any](v T) *T { return &v }

func ids(list []*Stay) []StayID {
	out := make([]StayID, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func equalIDs(a, b []StayID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestValidateFilter(t *testing.T) {
	bounds := ConsultYearBounds(daterange.Date(2024, 6, 1))

	f, err := ValidateFilter(RawFilter{ApartmentID: "3", Year: "2024", Month: "6"}, bounds)
	if err != nil {
		t.Fatalf("valid filter rejected: %v", err)
	}
	if *f.ApartmentID != 3 || *f.Year != 2024 || *f.Month != time.June {
		t.Fatalf("unexpected filter %+v", f)
	}

	empty, err := ValidateFilter(RawFilter{}, bounds)
	if err != nil || empty.ApartmentID != nil || empty.Year != nil || empty.Month != nil {
		t.Fatalf("empty input must be unconstrained: %+v %v", empty, err)
	}

	bad := []struct {
		raw   RawFilter
		field string
	}{
		{RawFilter{ApartmentID: "0"}, "apartment_id"},
		{RawFilter{ApartmentID: "abc"}, "apartment_id"},
		{RawFilter{Year: "2025"}, "year"},
		{RawFilter{Year: "1999"}, "year"},
		{RawFilter{Year: "twenty"}, "year"},
		{RawFilter{Month: "13"}, "month"},
		{RawFilter{Month: "0"}, "month"},
		{RawFilter{ApartmentID: "1", Year: "2024", Month: "x"}, "month"},
	}
	for _, tc := range bad {
		f, err := ValidateFilter(tc.raw, bounds)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%+v: expected ValidationError, got %v", tc.raw, err)
		}
		if verr.Field != tc.field {
			t.Errorf("%+v: field = %s, want %s", tc.raw, verr.Field, tc.field)
		}
		if f.ApartmentID != nil || f.Year != nil || f.Month != nil {
			t.Errorf("%+v: partial filter returned", tc.raw)
		}
	}
}

func TestApplyYearMonthOverlap(t *testing.T) {
	crossing := &Stay{ID: 1, CheckIn: day("2024-05-30"), CheckOut: day("2024-06-02")}
	june := Filter{Year: ptr(2024), Month: ptr(time.June)}
	july := Filter{Year: ptr(2024), Month: ptr(time.July)}

	if got := Apply([]*Stay{crossing}, june); len(got) != 1 {
		t.Fatalf("June filter must include the crossing stay")
	}
	if got := Apply([]*Stay{crossing}, july); len(got) != 0 {
		t.Fatalf("July filter must exclude it")
	}
	undated := &Stay{ID: 2, Year: 2024}
	if got := Apply([]*Stay{undated}, june); len(got) != 0 {
		t.Fatalf("undated stays are dropped by month filters")
	}
}

func TestApplyYearOnlyFallsBackToStoredYear(t *testing.T) {
	list := []*Stay{
		{ID: 1, Year: 2023},
		{ID: 2, Year: 2022},
		{ID: 3, CheckIn: day("2022-12-30"), CheckOut: day("2023-01-02")},
		{ID: 4, CheckIn: day("2022-06-01"), NightsCount: 2, Year: 2023},
	}
	got := Apply(list, Filter{Year: ptr(2023)})
	if !equalIDs(ids(got), []StayID{1, 3}) {
		t.Fatalf("year filter = %v", ids(got))
	}
}

func TestApplyMonthOnlyAcrossYears(t *testing.T) {
	list := []*Stay{
		{ID: 1, CheckIn: day("2021-06-10"), NightsCount: 2},
		{ID: 2, CheckIn: day("2023-06-28"), CheckOut: day("2023-07-03")},
		{ID: 3, CheckIn: day("2023-05-28"), CheckOut: day("2023-06-01")},
		{ID: 4, Year: 2023},
	}
	got := Apply(list, Filter{Month: ptr(time.June)})
	if !equalIDs(ids(got), []StayID{2, 1}) {
		t.Fatalf("month filter = %v", ids(got))
	}
}

func TestApplyApartmentOnlySortsByRecency(t *testing.T) {
	list := []*Stay{
		{ID: 1, ApartmentID: 7, CheckIn: day("2024-01-05")},
		{ID: 2, ApartmentID: 7, CheckOut: day("2024-03-01")},
		{ID: 3, ApartmentID: 8, CheckIn: day("2024-09-01")},
		{ID: 4, ApartmentID: 7, Year: 2023},
		{ID: 5, ApartmentID: 7, CheckIn: day("2024-01-05")},
		{ID: 6, ApartmentID: 7, Year: 2024},
	}
	got := Apply(list, Filter{ApartmentID: ptr(ApartmentID(7))})
	want := []StayID{6, 2, 5, 1, 4}
	if !equalIDs(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
	for i := 1; i < len(got); i++ {
		if CompareRecency(got[i-1], got[i]) >= 0 {
			t.Fatalf("order is not strict at %d", i)
		}
	}
}

func TestApplyNoFilterReturnsEverything(t *testing.T) {
	list := []*Stay{{ID: 1, Year: 2020}, {ID: 2, Year: 2021}, nil}
	got := Apply(list, Filter{})
	if !equalIDs(ids(got), []StayID{2, 1}) {
		t.Fatalf("got %v", ids(got))
	}
	if list[0].ID != 1 {
		t.Fatalf("input must not be reordered")
	}
}

func TestChronological(t *testing.T) {
	list := []*Stay{
		{ID: 3, CheckIn: day("2024-06-15")},
		{ID: 1, CheckIn: day("2024-06-10")},
		{ID: 2, CheckIn: day("2024-06-10")},
		nil,
	}
	got := Chronological(list)
	if !equalIDs(ids(got), []StayID{1, 2, 3}) {
		t.Fatalf("chronological = %v", ids(got))
	}
}
