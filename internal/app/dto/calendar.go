package dto

import (
	"stayregister/internal/domain/calendar"
	"stayregister/internal/domain/shared/daterange"
	"stayregister/internal/domain/stays"
)

type CalendarCell struct {
	Date           string   `json:"date"`
	Day            int      `json:"day"`
	OutsideMonth   bool     `json:"outside_month"`
	State          string   `json:"state"`
	Occupants      []int64  `json:"occupants,omitempty"`
	Arrivals       []int64  `json:"arrivals,omitempty"`
	Departures     []int64  `json:"departures,omitempty"`
	DepartingColor string   `json:"departing_color,omitempty"`
	ArrivingColor  string   `json:"arriving_color,omitempty"`
	Bands          []string `json:"bands,omitempty"`
}

type CalendarLegendEntry struct {
	StayID    int64  `json:"stay_id"`
	GuestName string `json:"guest_name"`
	Color     string `json:"color"`
}

// Calendar is the on-screen month view. Colors match the exported document
// for the same filter.
type Calendar struct {
	Year      int                   `json:"year"`
	Month     int                   `json:"month"`
	MonthName string                `json:"month_name"`
	GridStart string                `json:"grid_start"`
	Weeks     [][]CalendarCell      `json:"weeks"`
	Legend    []CalendarLegendEntry `json:"legend"`
}

func MapCalendar(p calendar.Paint, list []*stays.Stay) Calendar {
	names := make(map[stays.StayID]string, len(list))
	for _, s := range list {
		if s != nil {
			names[s.ID] = s.GuestName
		}
	}
	out := Calendar{
		Year:      p.Year,
		Month:     int(p.Month),
		MonthName: p.Month.String(),
		GridStart: daterange.FormatISO(p.GridStart),
		Weeks:     make([][]CalendarCell, 0, calendar.Weeks),
		Legend:    make([]CalendarLegendEntry, 0, len(list)),
	}
	for _, row := range p.Rows() {
		week := make([]CalendarCell, 0, len(row))
		for _, c := range row {
			week = append(week, mapCell(c))
		}
		out.Weeks = append(out.Weeks, week)
	}
	for _, id := range p.Colors.Order() {
		color, _ := p.Colors.Color(id)
		out.Legend = append(out.Legend, CalendarLegendEntry{StayID: int64(id), GuestName: names[id], Color: color.Hex()})
	}
	return out
}

func mapCell(c calendar.Cell) CalendarCell {
	shade := func(col calendar.Color) string {
		if c.OutsideMonth {
			col = col.Muted()
		}
		return col.Hex()
	}
	cell := CalendarCell{
		Date:         daterange.FormatISO(c.Date),
		Day:          c.Day(),
		OutsideMonth: c.OutsideMonth,
		State:        string(c.State),
		Occupants:    stayIDs(c.Occupants),
		Arrivals:     stayIDs(c.Arrivals),
		Departures:   stayIDs(c.Departures),
	}
	if c.Fill.Departing != nil {
		cell.DepartingColor = shade(*c.Fill.Departing)
	}
	if c.Fill.Arriving != nil {
		cell.ArrivingColor = shade(*c.Fill.Arriving)
	}
	for _, b := range c.Fill.Bands {
		cell.Bands = append(cell.Bands, shade(b))
	}
	return cell
}

func stayIDs(ids []stays.StayID) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
