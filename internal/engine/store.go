package engine

import (
	"fmt"
	"sort"

	"bandwidth/internal/models"
)

// Year bounds reported when a dataset has no valid rows.
const (
	DefaultMinYear = 2000
	DefaultMaxYear = 2023
)

// Dataset is the normalized, read-only snapshot of one input. Build it with
// Parse, ParseRows or NewDataset and never modify it afterwards; a new input
// produces a new Dataset.
type Dataset struct {
	Observations []models.Observation

	// Facets
	Countries []string // distinct display names, sorted
	Years     []int    // distinct years, ascending
	MinYear   int
	MaxYear   int

	// Fingerprint identifies the raw input (xxh3). Zero when unknown.
	Fingerprint uint64

	// year -> row positions in Observations, ascending
	byYear map[int][]int
}

// NewDataset assembles the index over observations that already passed
// validation. The slice is owned by the returned Dataset.
func NewDataset(obs []models.Observation) *Dataset {
	d := &Dataset{
		Observations: obs,
		byYear:       make(map[int][]int),
	}

	// Display names are keyed by code so a code that appears with several
	// spellings contributes only its last one.
	namesByCode := make(map[string]string)
	for i, o := range obs {
		d.byYear[o.Year] = append(d.byYear[o.Year], i)
		namesByCode[o.CountryCode] = o.Country
	}

	seen := make(map[string]bool, len(namesByCode))
	d.Countries = make([]string, 0, len(namesByCode))
	for _, name := range namesByCode {
		if seen[name] {
			continue
		}
		seen[name] = true
		d.Countries = append(d.Countries, name)
	}
	sort.Strings(d.Countries)

	d.Years = make([]int, 0, len(d.byYear))
	for y := range d.byYear {
		d.Years = append(d.Years, y)
	}
	sort.Ints(d.Years)

	d.MinYear, d.MaxYear = DefaultMinYear, DefaultMaxYear
	if len(d.Years) > 0 {
		d.MinYear = d.Years[0]
		d.MaxYear = d.Years[len(d.Years)-1]
	}
	return d
}

// Len reports the number of accepted observations.
func (d *Dataset) Len() int { return len(d.Observations) }

// Empty is true when no row survived validation.
func (d *Dataset) Empty() bool { return len(d.Observations) == 0 }

// FingerprintHex renders the fingerprint the way it is exposed in ETags.
func (d *Dataset) FingerprintHex() string {
	return fmt.Sprintf("%016x", d.Fingerprint)
}

// Meta summarizes the facets for the filter controls.
func (d *Dataset) Meta() models.Meta {
	return models.Meta{
		Countries:    append([]string(nil), d.Countries...),
		Years:        append([]int(nil), d.Years...),
		MinYear:      d.MinYear,
		MaxYear:      d.MaxYear,
		Observations: len(d.Observations),
		Fingerprint:  d.FingerprintHex(),
	}
}

// yearRows returns the observations for one year in input order. The
// returned slice is freshly allocated.
func (d *Dataset) yearRows(year int) []models.Observation {
	idx := d.byYear[year]
	out := make([]models.Observation, len(idx))
	for i, row := range idx {
		out[i] = d.Observations[row]
	}
	return out
}
