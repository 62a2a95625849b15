package calendar

import (
	"testing"
	"time"

	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

func date(raw string) *time.Time {
	t := daterange.MustParse(raw)
	return &t
}

func cellAt(t *testing.T, p Paint, raw string) Cell {
	t.Helper()
	want := daterange.MustParse(raw)
	for _, c := range p.Cells {
		if c.Date.Equal(want) {
			return c
		}
	}
	t.Fatalf("%s not in grid", raw)
	return Cell{}
}

func TestGridStartsOnMondayAndHas42Cells(t *testing.T) {
	for year := 2023; year <= 2025; year++ {
		for m := time.January; m <= time.December; m++ {
			p := PaintMonth(nil, year, m)
			if len(p.Cells) != GridSize {
				t.Fatalf("%d-%02d: %d cells", year, m, len(p.Cells))
			}
			if p.GridStart.Weekday() != time.Monday {
				t.Fatalf("%d-%02d starts on %s", year, m, p.GridStart.Weekday())
			}
			first := daterange.Date(year, m, 1)
			if p.GridStart.After(first) || first.Sub(p.GridStart) >= 7*24*time.Hour {
				t.Fatalf("%d-%02d: grid start %s too far from the 1st", year, m, p.GridStart)
			}
			for _, c := range p.Cells {
				if c.State == "" {
					t.Fatalf("%d-%02d: unclassified cell %s", year, m, c.Date)
				}
				inMonth := c.Date.Month() == m && c.Date.Year() == year
				if c.OutsideMonth == inMonth {
					t.Fatalf("%s outside flag wrong", c.Date)
				}
			}
		}
	}
}

func TestTurnoverScenario(t *testing.T) {
	list := []*stays.Stay{
		{ID: 1, CheckIn: date("2024-06-10"), CheckOut: date("2024-06-15")},
		{ID: 2, CheckIn: date("2024-06-15"), CheckOut: date("2024-06-18")},
	}
	p := PaintMonth(list, 2024, time.June)

	expect := map[string]State{
		"2024-06-09": StateNone,
		"2024-06-10": StateOccupied,
		"2024-06-14": StateOccupied,
		"2024-06-15": StateTurnover,
		"2024-06-16": StateOccupied,
		"2024-06-17": StateOccupied,
		"2024-06-18": StateDeparture,
		"2024-06-19": StateNone,
	}
	for raw, state := range expect {
		if got := cellAt(t, p, raw).State; got != state {
			t.Errorf("%s = %s, want %s", raw, got, state)
		}
	}

	turnover := cellAt(t, p, "2024-06-15")
	c1, _ := p.Colors.Color(1)
	c2, _ := p.Colors.Color(2)
	if turnover.Fill.Departing == nil || turnover.Fill.Arriving == nil {
		t.Fatalf("turnover needs both halves: %+v", turnover.Fill)
	}
	if *turnover.Fill.Departing != c1 || *turnover.Fill.Arriving != c2 {
		t.Fatalf("turnover colors = %v/%v", turnover.Fill.Departing, turnover.Fill.Arriving)
	}
	if turnover.DepartingStay != 1 || turnover.ArrivingStay != 2 {
		t.Fatalf("turnover stays = %d/%d", turnover.DepartingStay, turnover.ArrivingStay)
	}

	departure := cellAt(t, p, "2024-06-18")
	if departure.Fill.Departing == nil || *departure.Fill.Departing != c2 || departure.Fill.Arriving != nil {
		t.Fatalf("departure fill = %+v", departure.Fill)
	}
}

func TestConcurrentStaysPaintBands(t *testing.T) {
	list := []*stays.Stay{
		{ID: 9, CheckIn: date("2024-02-05"), NightsCount: 3},
		{ID: 4, CheckIn: date("2024-02-06"), NightsCount: 1},
	}
	p := PaintMonth(list, 2024, time.February)
	c := cellAt(t, p, "2024-02-06")
	if c.State != StateOccupied || len(c.Fill.Bands) != 2 {
		t.Fatalf("expected two bands, got %s %+v", c.State, c.Fill)
	}
	c4, _ := p.Colors.Color(4)
	c9, _ := p.Colors.Color(9)
	if c.Fill.Bands[0] != c4 || c.Fill.Bands[1] != c9 {
		t.Fatalf("bands must follow ascending id")
	}
	// stay 4 leaves on the 7th while stay 9 is still in: occupied, not departure.
	if got := cellAt(t, p, "2024-02-07").State; got != StateOccupied {
		t.Fatalf("2024-02-07 = %s", got)
	}
}

func TestOutsideMonthCellsKeepClassification(t *testing.T) {
	list := []*stays.Stay{{ID: 1, CheckIn: date("2024-05-29"), CheckOut: date("2024-06-03")}}
	p := PaintMonth(list, 2024, time.June)
	c := cellAt(t, p, "2024-05-29")
	if !c.OutsideMonth || c.State != StateOccupied {
		t.Fatalf("leading day = %+v", c)
	}
}

func TestColorsCycleChronologically(t *testing.T) {
	var list []*stays.Stay
	for i := 7; i >= 1; i-- {
		list = append(list, &stays.Stay{ID: stays.StayID(i), CheckIn: date("2024-03-01"), NightsCount: i})
	}
	a := AssignColors(list)
	for i := 1; i <= 7; i++ {
		got, ok := a.Color(stays.StayID(i))
		if !ok || got != Palette[(i-1)%len(Palette)] {
			t.Fatalf("stay %d got %v", i, got)
		}
	}
	again := AssignColors(list)
	for _, id := range a.Order() {
		x, _ := a.Color(id)
		y, _ := again.Color(id)
		if x != y {
			t.Fatalf("assignment not deterministic for %d", id)
		}
	}
}

func TestMutedIsLighter(t *testing.T) {
	for _, c := range Palette {
		m := c.Muted()
		if int(m.R)+int(m.G)+int(m.B) <= int(c.R)+int(c.G)+int(c.B) {
			t.Fatalf("%s not lighter when muted", c.Name)
		}
	}
	if Palette[0].Hex() != "#2a9d8f" {
		t.Fatalf("hex = %s", Palette[0].Hex())
	}
}

func TestNilStaysAreIgnored(t *testing.T) {
	list := []*stays.Stay{nil, {ID: 1, CheckIn: date("2024-06-10"), NightsCount: 2}, nil}
	p := PaintMonth(list, 2024, time.June)
	if got := cellAt(t, p, "2024-06-10").State; got != StateOccupied {
		t.Fatalf("2024-06-10 = %s", got)
	}
	if order := p.Colors.Order(); len(order) != 1 || order[0] != 1 {
		t.Fatalf("color order = %v", order)
	}
}
