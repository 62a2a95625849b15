package stays

import (
	"cmp"
	"slices"
	"time"
)

type MonthGroup struct {
	Month time.Month
	Stays []*Stay
}

type YearGroup struct {
	Year   int
	Months []MonthGroup
}

// Count is the number of stays across all months of the year.
func (g YearGroup) Count() int {
	n := 0
	for _, m := range g.Months {
		n += len(m.Stays)
	}
	return n
}

// GroupForExport partitions list into year and month buckets, newest first,
// stays inside a bucket by recency. A year or month pinned by f overrides the
// stay's own anchor so every matching stay lands in the named bucket.
func GroupForExport(list []*Stay, f Filter) []YearGroup {
	type key struct {
		year  int
		month time.Month
	}
	buckets := make(map[key][]*Stay)
	for _, s := range list {
		if s == nil {
			continue
		}
		anchor := s.ChronologicalAnchor()
		k := key{year: anchor.Year(), month: anchor.Month()}
		if f.Year != nil {
			k.year = *f.Year
		}
		if f.Month != nil {
			k.month = *f.Month
		}
		buckets[k] = append(buckets[k], s)
	}
	if len(buckets) == 0 {
		return []YearGroup{}
	}

	byYear := make(map[int][]MonthGroup)
	for k, members := range buckets {
		SortByRecency(members)
		byYear[k.year] = append(byYear[k.year], MonthGroup{Month: k.month, Stays: members})
	}

	years := make([]YearGroup, 0, len(byYear))
	for year, months := range byYear {
		slices.SortFunc(months, func(a, b MonthGroup) int { return cmp.Compare(b.Month, a.Month) })
		years = append(years, YearGroup{Year: year, Months: months})
	}
	slices.SortFunc(years, func(a, b YearGroup) int { return cmp.Compare(b.Year, a.Year) })
	return years
}
