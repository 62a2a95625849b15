package dto

import "stayregister/internal/domain/stays"

type MonthGroup struct {
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Count     int    `json:"count"`
	Stays     []Stay `json:"stays"`
}

type YearGroup struct {
	Year   int          `json:"year"`
	Count  int          `json:"count"`
	Months []MonthGroup `json:"months"`
}

type GroupCollection struct {
	Groups []YearGroup `json:"groups"`
	Total  int         `json:"total"`
	Filter FilterEcho  `json:"filter"`
}

func MapGroups(groups []stays.YearGroup) []YearGroup {
	out := make([]YearGroup, 0, len(groups))
	for _, g := range groups {
		yg := YearGroup{Year: g.Year, Count: g.Count(), Months: make([]MonthGroup, 0, len(g.Months))}
		for _, m := range g.Months {
			yg.Months = append(yg.Months, MonthGroup{
				Month:     int(m.Month),
				MonthName: m.Month.String(),
				Count:     len(m.Stays),
				Stays:     MapStays(m.Stays),
			})
		}
		out = append(out, yg)
	}
	return out
}
