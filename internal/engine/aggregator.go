package engine

import (
	"sort"

	"bandwidth/internal/models"
)

// Default result sizes used by the dashboard.
const (
	DefaultTopLimit    = 10
	DefaultGrowthLimit = 5
	DefaultTrendSize   = 5
)

// FilterByCountriesAndYear returns the observations of year, restricted to
// selection when it is non-empty. Input order is preserved.
func (d *Dataset) FilterByCountriesAndYear(selection []string, year int) []models.Observation {
	rows := d.yearRows(year)
	if len(selection) == 0 {
		return rows
	}

	wanted := make(map[string]bool, len(selection))
	for _, c := range selection {
		wanted[c] = true
	}

	out := rows[:0]
	for _, o := range rows {
		if wanted[o.Country] {
			out = append(out, o)
		}
	}
	return out
}

// TopCountries ranks the observations of year by value, highest first. Equal
// values keep input order.
func (d *Dataset) TopCountries(year, limit int) []models.Observation {
	if limit <= 0 {
		return []models.Observation{}
	}

	rows := d.yearRows(year)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Value > rows[j].Value })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// TrendSeries returns one year-ordered series per requested country, in
// request order. Countries without data are left out.
func (d *Dataset) TrendSeries(countries []string) []models.Series {
	if len(countries) == 0 {
		return []models.Series{}
	}

	pos := make(map[string]int, len(countries))
	points := make([][]models.Observation, 0, len(countries))
	names := make([]string, 0, len(countries))
	for _, c := range countries {
		if _, dup := pos[c]; dup {
			continue
		}
		pos[c] = len(names)
		names = append(names, c)
		points = append(points, nil)
	}

	for _, o := range d.Observations {
		if i, ok := pos[o.Country]; ok {
			points[i] = append(points[i], o)
		}
	}

	out := make([]models.Series, 0, len(names))
	for i, name := range names {
		p := points[i]
		if len(p) == 0 {
			continue
		}
		sort.SliceStable(p, func(a, b int) bool { return p[a].Year < p[b].Year })
		out = append(out, models.Series{Country: name, Points: p})
	}
	return out
}

// GlobalAverage is the mean value over every observation of year, or 0 when
// the year has none.
func (d *Dataset) GlobalAverage(year int) float64 {
	idx := d.byYear[year]
	if len(idx) == 0 {
		return 0
	}

	var sum float64
	for _, row := range idx {
		sum += d.Observations[row].Value
	}
	return sum / float64(len(idx))
}

// YoYGrowth is the percentage change of the global average against the
// previous year. A zero previous average, which can only mean the previous
// year has no data, yields 0.
func (d *Dataset) YoYGrowth(year int) float64 {
	current := d.GlobalAverage(year)
	previous := d.GlobalAverage(year - 1)
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// FastestGrowing ranks countries with data in both year and year-1 by their
// own growth percentage, highest first.
func (d *Dataset) FastestGrowing(year, limit int) []models.Growth {
	if limit <= 0 {
		return []models.Growth{}
	}

	// First prior-year row per country is the baseline.
	previous := make(map[string]float64)
	for _, o := range d.yearRows(year - 1) {
		if _, ok := previous[o.Country]; !ok {
			previous[o.Country] = o.Value
		}
	}

	// Later current-year rows overwrite earlier ones but keep their slot.
	slot := make(map[string]int)
	growth := make([]models.Growth, 0)
	for _, o := range d.yearRows(year) {
		prev, ok := previous[o.Country]
		if !ok || prev <= 0 {
			continue
		}
		g := (o.Value - prev) / prev * 100
		if i, seen := slot[o.Country]; seen {
			growth[i].Growth = g
			continue
		}
		slot[o.Country] = len(growth)
		growth = append(growth, models.Growth{Country: o.Country, Growth: g})
	}

	sort.SliceStable(growth, func(i, j int) bool { return growth[i].Growth > growth[j].Growth })
	if len(growth) > limit {
		growth = growth[:limit]
	}
	return growth
}
