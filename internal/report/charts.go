package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"bandwidth/internal/models"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Chart size and format of every rendered chart.
const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 6 * vg.Inch
	chartFormat = "png"
)

// TopChart renders the ranking of one year as a bar chart.
func TopChart(out io.Writer, year int, top []models.Observation) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top Countries by Bandwidth per Capita (%d)", year)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.Text = "Kbps per capita"

	if len(top) > 0 {
		values := make(plotter.Values, len(top))
		labels := make([]string, len(top))
		for i, o := range top {
			values[i] = o.Value
			labels[i] = o.Country
		}

		bars, err := plotter.NewBarChart(values, vg.Points(28))
		if err != nil {
			return fmt.Errorf("top chart: %w", err)
		}
		bars.Color = color.RGBA{R: 59, G: 130, B: 246, A: 255}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)

		p.NominalX(labels...)
		p.X.Tick.Label.Rotation = math.Pi / 6
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
		p.Y.Min = 0
	}

	return render(p, out)
}

// TrendChart renders one line per country series.
func TrendChart(out io.Writer, series []models.Series) error {
	p := plot.New()
	p.Title.Text = "Bandwidth per Capita Trends"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Kbps per capita"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Points))
		for j, o := range s.Points {
			pts[j].X = float64(o.Year)
			pts[j].Y = o.Value
		}

		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("trend chart %s: %w", s.Country, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(2)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Shape = draw.CircleGlyph{}

		p.Add(line, points)
		p.Legend.Add(s.Country, line, points)
	}
	p.X.Tick.Marker = plot.TickerFunc(yearTicks)

	return render(p, out)
}

// yearTicks labels whole years only.
func yearTicks(min, max float64) []plot.Tick {
	if math.IsInf(min, 0) || math.IsInf(max, 0) || max < min {
		return nil
	}
	step := 1
	if span := int(max - min); span > 12 {
		step = span / 12
	}
	var ticks []plot.Tick
	for y := int(math.Ceil(min)); y <= int(math.Floor(max)); y += step {
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: fmt.Sprintf("%d", y)})
	}
	return ticks
}

func render(p *plot.Plot, out io.Writer) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, chartFormat)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(out); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
