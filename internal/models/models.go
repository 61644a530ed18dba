package models

// Observation is one country's bandwidth per capita (Kbps) for one year.
type Observation struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Year        int     `json:"year"`
	Value       float64 `json:"value"`
}

// Series is the year-ordered trend of a single country.
type Series struct {
	Country string        `json:"country"`
	Points  []Observation `json:"points"`
}

type Growth struct {
	Country string  `json:"country"`
	Growth  float64 `json:"growth"`
}

type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Meta struct {
	Countries    []string `json:"countries"`
	Years        []int    `json:"years"`
	MinYear      int      `json:"min_year"`
	MaxYear      int      `json:"max_year"`
	Observations int      `json:"observations"`
	Fingerprint  string   `json:"fingerprint"`
}

// DashboardData is everything the dashboard view needs for one year and
// country selection.
type DashboardData struct {
	Year             int           `json:"year"`
	GlobalAverage    float64       `json:"global_average"`
	YoYGrowth        float64       `json:"yoy_growth"`
	TopPerformer     *Observation  `json:"top_performer,omitempty"`
	CountriesTracked int           `json:"countries_tracked"`
	TopCountries     []Observation `json:"top_countries"`
	FastestGrowing   []Growth      `json:"fastest_growing"`
	WorldOverview    []Observation `json:"world_overview"`
	Trends           []Series      `json:"trends"`
	Insights         []Insight     `json:"insights,omitempty"`
}
