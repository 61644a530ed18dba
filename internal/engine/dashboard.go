package engine

import (
	"sort"

	"bandwidth/internal/models"
)

// Dashboard computes every view of the dashboard for one year. With an empty
// selection the trend chart follows the year's five leading countries.
func (d *Dataset) Dashboard(year int, selection []string) *models.DashboardData {
	top := d.TopCountries(year, DefaultTopLimit)

	overview := d.yearRows(year)
	sort.SliceStable(overview, func(i, j int) bool { return overview[i].Value > overview[j].Value })

	data := &models.DashboardData{
		Year:             year,
		GlobalAverage:    d.GlobalAverage(year),
		YoYGrowth:        d.YoYGrowth(year),
		CountriesTracked: len(overview),
		TopCountries:     top,
		FastestGrowing:   d.FastestGrowing(year, DefaultGrowthLimit),
		WorldOverview:    overview,
		Trends:           d.TrendSeries(TrendCountries(top, selection)),
	}
	if len(top) > 0 {
		leader := top[0]
		data.TopPerformer = &leader
	}
	data.Insights = BuildInsights(data)
	return data
}

// TrendCountries picks the countries for the trend chart: the explicit
// selection, or else the first DefaultTrendSize entries of top.
func TrendCountries(top []models.Observation, selection []string) []string {
	if len(selection) > 0 {
		return selection
	}
	n := len(top)
	if n > DefaultTrendSize {
		n = DefaultTrendSize
	}
	out := make([]string, 0, n)
	for _, o := range top[:n] {
		out = append(out, o.Country)
	}
	return out
}
