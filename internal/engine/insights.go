package engine

import (
	"math"
	"strconv"

	"bandwidth/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const notAvailable = "N/A"

// BuildInsights writes the four narrative insights shown under the charts.
// Years are formatted outside the printer so they are not digit-grouped.
func BuildInsights(d *models.DashboardData) []models.Insight {
	p := message.NewPrinter(language.English)

	topName := func(i int) string {
		if i < len(d.TopCountries) {
			return d.TopCountries[i].Country
		}
		return notAvailable
	}
	fastName := func(i int) string {
		if i < len(d.FastestGrowing) {
			return d.FastestGrowing[i].Country
		}
		return notAvailable
	}

	direction, strength, outlook := "decreased", "concerning", "potential market challenges"
	if d.YoYGrowth > 0 {
		direction, outlook = "increased", "ongoing digital infrastructure expansion worldwide"
		strength = "moderate"
		if d.YoYGrowth > 5 {
			strength = "substantial"
		}
	}

	topValue := 0.0
	if len(d.TopCountries) > 0 {
		topValue = d.TopCountries[0].Value
	}
	fastGrowth := 0.0
	if len(d.FastestGrowing) > 0 {
		fastGrowth = d.FastestGrowing[0].Growth
	}
	capacity := "strong"
	if topValue > d.GlobalAverage*10 {
		capacity = "exceptional"
	}

	return []models.Insight{
		{
			Title: "Global Growth Pattern",
			Description: p.Sprintf("In %s, the global average bandwidth per capita %s by %.1f%% compared to the previous year. "+
				"This %s trend reflects %s.", strconv.Itoa(d.Year), direction, math.Abs(d.YoYGrowth), strength, outlook),
		},
		{
			Title: "Leading Countries",
			Description: p.Sprintf("%s leads with %.2f Kbps per capita, followed by %s and %s. "+
				"These nations demonstrate advanced telecommunications infrastructure and high digital adoption rates.",
				topName(0), topValue, topName(1), topName(2)),
		},
		{
			Title: "Fastest Improvers",
			Description: p.Sprintf("%s showed the highest growth rate at %.1f%%, indicating significant infrastructure investments. "+
				"Other notable improvers include %s and %s, suggesting a global shift toward enhanced connectivity.",
				fastName(0), fastGrowth, fastName(1), fastName(2)),
		},
		{
			Title: "Notable Observations",
			Description: p.Sprintf("The gap between top performers and the global average (%.2f Kbps) highlights significant disparities in digital infrastructure. "+
				"Countries with %s bandwidth capacity often correlate with advanced economies and tech-forward policies.", d.GlobalAverage, capacity),
		},
	}
}
