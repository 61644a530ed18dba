package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bandwidth/internal/engine"

	"golang.org/x/sync/errgroup"
)

// WriteAll renders the workbook, both charts and the Arrow export of d for
// year into dir, concurrently. It returns the written paths in a fixed order.
func WriteAll(ctx context.Context, dir string, d *engine.Dataset, year int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	data := d.Dashboard(year, nil)

	outputs := []struct {
		name   string
		render func(io.Writer) error
	}{
		{fmt.Sprintf("bandwidth_%d.xlsx", year), func(w io.Writer) error { return WriteWorkbook(w, data) }},
		{fmt.Sprintf("top_%d.png", year), func(w io.Writer) error { return TopChart(w, year, data.TopCountries) }},
		{fmt.Sprintf("trend_%d.png", year), func(w io.Writer) error { return TrendChart(w, data.Trends) }},
		{"observations.arrow", func(w io.Writer) error { return WriteArrow(w, d.Columns()) }},
	}

	paths := make([]string, len(outputs))
	g, ctx := errgroup.WithContext(ctx)
	for i, o := range outputs {
		paths[i] = filepath.Join(dir, o.name)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(paths[i], o.render)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := render(w); err != nil {
		f.Close()
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
