package main

import (
	"bandwidth/internal/engine"
	"bandwidth/internal/logging"
	"bandwidth/internal/report"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/buger/goterm"
	"github.com/davecgh/go-spew/spew"
)

func main() {
	data := flag.String("data", "data/bandwidth-data.csv", "Path or URL of the bandwidth table (.csv, .xlsx, .xls)")
	year := flag.Int("year", 0, "Year to report on (defaults to the latest year in the data)")
	out := flag.String("out", "reports", "Directory for the generated files")
	dump := flag.Bool("dump", false, "Print the dataset facets")
	timeout := flag.Duration("timeout", time.Minute, "Timeout for loading and rendering")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, cancel := context.WithTimeout(logging.ContextWithLogger(context.Background(), log), *timeout)
	defer cancel()

	d, err := engine.LoadDataset(ctx, *data)
	if err != nil {
		log.Error(ctx, "failed to load dataset", logging.Err(err))
		os.Exit(1)
	}
	if d.Empty() {
		log.Warn(ctx, "dataset has no valid rows", logging.String("source", *data))
	}

	if *year == 0 {
		*year = d.MaxYear
	}

	if *dump {
		spew.Dump(d.Meta())
	}

	printSummary(d, *year)

	paths, err := report.WriteAll(ctx, *out, d, *year)
	if err != nil {
		log.Error(ctx, "failed to write report", logging.Err(err))
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(goterm.Color("wrote ", goterm.GREEN) + p)
	}
}

func printSummary(d *engine.Dataset, year int) {
	growth := d.YoYGrowth(year)
	growthColor := goterm.GREEN
	if growth < 0 {
		growthColor = goterm.RED
	}

	fmt.Println(goterm.Bold(goterm.Color(fmt.Sprintf("Bandwidth per capita, %d", year), goterm.CYAN)))
	fmt.Printf("  Global average : %.2f Kbps\n", d.GlobalAverage(year))
	fmt.Printf("  YoY growth     : %s\n", goterm.Color(fmt.Sprintf("%+.1f%% vs %d", growth, year-1), growthColor))
	fmt.Printf("  Countries      : %d tracked in %d, %d overall\n", len(d.FilterByCountriesAndYear(nil, year)), year, len(d.Countries))

	fmt.Println(goterm.Bold("Top countries"))
	for i, o := range d.TopCountries(year, engine.DefaultTopLimit) {
		fmt.Printf("  %2d. %-30s %10.2f\n", i+1, o.Country, o.Value)
	}

	fmt.Println(goterm.Bold("Fastest growing"))
	for i, g := range d.FastestGrowing(year, engine.DefaultGrowthLimit) {
		fmt.Printf("  %2d. %-30s %+9.1f%%\n", i+1, g.Country, g.Growth)
	}
}
