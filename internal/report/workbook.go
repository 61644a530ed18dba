package report

import (
	"fmt"
	"io"

	"bandwidth/internal/models"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the exported workbook.
const (
	SheetSummary = "Summary"
	SheetTop     = "Top_Countries"
	SheetGrowth  = "Fastest_Growing"
	SheetTrends  = "Trends"
)

// sheetWriter appends rows to one sheet and remembers the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (w *sheetWriter) add(values ...interface{}) {
	if w.err != nil {
		return
	}
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(w.sheet, cell, &values)
}

func (w *sheetWriter) widths(width float64, cols ...string) {
	for _, c := range cols {
		if w.err != nil {
			return
		}
		w.err = w.f.SetColWidth(w.sheet, c, c, width)
	}
}

// WriteWorkbook renders a dashboard as an .xlsx workbook.
func WriteWorkbook(out io.Writer, data *models.DashboardData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetTop, SheetGrowth, SheetTrends} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := &sheetWriter{f: f, sheet: SheetSummary}
	summary.widths(28, "A")
	summary.widths(110, "B")
	summary.add("Year", data.Year)
	summary.add("Global Average (Kbps)", data.GlobalAverage)
	summary.add("Year-over-Year Growth (%)", data.YoYGrowth)
	summary.add("Countries Tracked", data.CountriesTracked)
	if data.TopPerformer != nil {
		summary.add("Top Performer", data.TopPerformer.Country)
	} else {
		summary.add("Top Performer", "N/A")
	}
	summary.add()
	for _, in := range data.Insights {
		summary.add(in.Title, in.Description)
	}

	top := &sheetWriter{f: f, sheet: SheetTop}
	top.widths(24, "B")
	top.add("Rank", "Country", "Code", "Kbps per capita")
	for i, o := range data.TopCountries {
		top.add(i+1, o.Country, o.CountryCode, o.Value)
	}

	growth := &sheetWriter{f: f, sheet: SheetGrowth}
	growth.widths(24, "B")
	growth.add("Rank", "Country", fmt.Sprintf("Growth vs %d (%%)", data.Year-1))
	for i, g := range data.FastestGrowing {
		growth.add(i+1, g.Country, g.Growth)
	}

	trends := &sheetWriter{f: f, sheet: SheetTrends}
	trends.widths(24, "A")
	trends.add("Country", "Year", "Kbps per capita")
	for _, s := range data.Trends {
		for _, p := range s.Points {
			trends.add(s.Country, p.Year, p.Value)
		}
	}

	for _, w := range []*sheetWriter{summary, top, growth, trends} {
		if w.err != nil {
			return fmt.Errorf("write sheet %s: %w", w.sheet, w.err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
