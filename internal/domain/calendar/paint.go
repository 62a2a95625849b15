package calendar

import (
	"slices"
	"time"

	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

const (
	DaysPerWeek = 7
	Weeks       = 6
	GridSize    = DaysPerWeek * Weeks
)

type State string

const (
	StateNone      State = "none"
	StateOccupied  State = "occupied"
	StateTurnover  State = "turnover"
	StateDeparture State = "departure"
)

// Fill describes how a cell is painted. Turnover cells are split along the
// diagonal with the departing stay in the upper-left half and the arriving
// stay in the lower-right half; departure cells leave the lower half blank.
// Occupied cells are vertical bands, one per stay, left to right.
type Fill struct {
	Departing *Color  `json:"departing,omitempty"`
	Arriving  *Color  `json:"arriving,omitempty"`
	Bands     []Color `json:"bands,omitempty"`
}

type Cell struct {
	Date         time.Time
	OutsideMonth bool
	State        State
	Occupants    []stays.StayID
	Arrivals     []stays.StayID
	Departures   []stays.StayID
	// DepartingStay and ArrivingStay are set for split cells.
	DepartingStay stays.StayID
	ArrivingStay  stays.StayID
	Fill          Fill
}

func (c Cell) Day() int { return c.Date.Day() }

// Paint is the full visual state of one month view.
type Paint struct {
	Year      int
	Month     time.Month
	GridStart time.Time
	Cells     []Cell
	Colors    Assignment
}

// Rows splits the grid into weeks, Monday first.
func (p Paint) Rows() [][]Cell {
	rows := make([][]Cell, 0, Weeks)
	for i := 0; i+DaysPerWeek <= len(p.Cells); i += DaysPerWeek {
		rows = append(rows, p.Cells[i:i+DaysPerWeek])
	}
	return rows
}

// GridStart is the Monday on or before the first day of the month.
func GridStart(year int, month time.Month) time.Time {
	first := daterange.Date(year, month, 1)
	back := (int(first.Weekday()) + 6) % 7
	return first.AddDate(0, 0, -back)
}

type span struct {
	id       stays.StayID
	interval daterange.DateRange
	checkIn  time.Time
}

// PaintMonth computes the 42-cell month view for list. It is pure and total:
// every cell gets exactly one State.
func PaintMonth(list []*stays.Stay, year int, month time.Month) Paint {
	start := GridStart(year, month)
	colors := AssignColors(list)

	spans := make([]span, 0, len(list))
	for _, s := range list {
		if s == nil {
			continue
		}
		interval, ok := s.Interval()
		if !ok {
			continue
		}
		sp := span{id: s.ID, interval: interval}
		if s.CheckIn != nil && !s.CheckIn.IsZero() {
			sp.checkIn = daterange.Midnight(*s.CheckIn)
		}
		spans = append(spans, sp)
	}
	slices.SortFunc(spans, func(a, b span) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})

	cells := make([]Cell, GridSize)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cell := Cell{
			Date:         d,
			OutsideMonth: d.Month() != month || d.Year() != year,
		}
		for _, sp := range spans {
			if sp.interval.ContainsDate(d) {
				cell.Occupants = append(cell.Occupants, sp.id)
			}
			if !sp.checkIn.IsZero() && sp.checkIn.Equal(d) {
				cell.Arrivals = append(cell.Arrivals, sp.id)
			}
			if sp.interval.CheckOut.Equal(d) {
				cell.Departures = append(cell.Departures, sp.id)
			}
		}
		classify(&cell, colors)
		cells[i] = cell
	}

	return Paint{Year: year, Month: month, GridStart: start, Cells: cells, Colors: colors}
}

func classify(cell *Cell, colors Assignment) {
	colorOf := func(id stays.StayID) *Color {
		c, ok := colors.Color(id)
		if !ok {
			c = Palette[0]
		}
		return &c
	}

	for _, dep := range cell.Departures {
		for _, arr := range cell.Arrivals {
			if arr == dep {
				continue
			}
			cell.State = StateTurnover
			cell.DepartingStay, cell.ArrivingStay = dep, arr
			cell.Fill = Fill{Departing: colorOf(dep), Arriving: colorOf(arr)}
			return
		}
	}

	if len(cell.Occupants) == 0 && len(cell.Departures) > 0 {
		dep := cell.Departures[0]
		cell.State = StateDeparture
		cell.DepartingStay = dep
		cell.Fill = Fill{Departing: colorOf(dep)}
		return
	}

	if len(cell.Occupants) > 0 {
		bands := make([]Color, 0, len(cell.Occupants))
		for _, id := range cell.Occupants {
			bands = append(bands, *colorOf(id))
		}
		cell.State = StateOccupied
		cell.Fill = Fill{Bands: bands}
		return
	}

	cell.State = StateNone
}
