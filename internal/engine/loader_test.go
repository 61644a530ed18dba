package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// csvRow builds a 25 column row with the four positional fields filled in.
func csvRow(code, name, year, value string) string {
	cols := make([]string, MinFields)
	for i := range cols {
		cols[i] = fmt.Sprintf("x%d", i)
	}
	cols[ColCountryCode] = code
	cols[ColCountryName] = name
	cols[ColYear] = year
	cols[ColValue] = value
	return strings.Join(cols, ",")
}

func csvText(rows ...string) []byte {
	header := csvRow("code", "name", "year", "value")
	return []byte(header + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestParseAcceptsValidRows(t *testing.T) {
	d := Parse(csvText(
		csvRow("US", "United States", "2019", "400.0"),
		csvRow(" DE ", " Germany ", " 2020 ", " 120.5 "),
	))

	if d.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", d.Len())
	}

	got := d.Observations[1]
	if got.Country != "Germany" || got.CountryCode != "DE" || got.Year != 2020 || got.Value != 120.5 {
		t.Errorf("Row 1: unexpected observation %+v", got)
	}
	if d.MinYear != 2019 || d.MaxYear != 2020 {
		t.Errorf("Bounds: expected 2019-2020, got %d-%d", d.MinYear, d.MaxYear)
	}
	if d.Fingerprint == 0 {
		t.Error("Expected a fingerprint for parsed text")
	}
}

func TestParseDropsMalformedRows(t *testing.T) {
	short := strings.Join(make([]string, 10), ",")
	d := Parse(csvText(
		csvRow("US", "United States", "2020", "500"),
		short,
		csvRow("FR", "France", "2020", "-5"),
		csvRow("", "Nowhere", "2020", "10"),
		csvRow("XX", "", "2020", "10"),
		csvRow("IT", "Italy", "x2020", "10"),
		csvRow("MT", "Malta", "99999999999", "10"),
		csvRow("IS", "Iceland", "2020", "1e400"),
		csvRow("LU", "Luxembourg", "2020", "-"),
		csvRow("ES", "Spain", "2020", "abc"),
		csvRow("PT", "Portugal", "2020", "0"),
		csvRow("GR", "Greece", "2020", "NaN"),
		csvRow("NO", "Norway", "2020", "+Inf"),
		"   ",
		"",
	))

	if d.Len() != 1 {
		t.Fatalf("Expected only the valid row to survive, got %d: %+v", d.Len(), d.Observations)
	}
	if d.Observations[0].CountryCode != "US" {
		t.Errorf("Unexpected surviving row %+v", d.Observations[0])
	}
}

func TestParseReadsLeadingNumbers(t *testing.T) {
	d := Parse(csvText(
		csvRow("US", "United States", "2020.0", "500"),
		csvRow("CA", "Canada", "2020", "300 Kbps"),
		csvRow("MX", "Mexico", "2021 (est.)", ".5e2x"),
	))

	if d.Len() != 3 {
		t.Fatalf("Expected 3 rows, got %d: %+v", d.Len(), d.Observations)
	}
	want := []struct {
		year  int
		value float64
	}{{2020, 500}, {2020, 300}, {2021, 50}}
	for i, w := range want {
		got := d.Observations[i]
		if got.Year != w.year || got.Value != w.value {
			t.Errorf("Row %d: expected %d/%v, got %d/%v", i, w.year, w.value, got.Year, got.Value)
		}
	}
}

func TestLeadingFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"120.5", 120.5, true},
		{"12.", 12, true},
		{".25", 0.25, true},
		{"-3.5kb", -3.5, true},
		{"1e3", 1000, true},
		{"1e", 1, true},
		{"2E-1x", 0.2, true},
		{"+7", 7, true},
		{"", 0, false},
		{".", 0, false},
		{"-", 0, false},
		{"Infinity", 0, false},
		{"NaN", 0, false},
		{"1e400", 0, false},
	}
	for _, tt := range tests {
		got, ok := leadingFloat(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("leadingFloat(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseNeedsTwentyFiveFields(t *testing.T) {
	row := csvRow("US", "United States", "2020", "500")
	// Drop the value column entirely: 24 fields remain.
	truncated := row[:strings.LastIndexByte(row, ',')]

	d := Parse(csvText(truncated))
	if d.Len() != 0 {
		t.Fatalf("Expected 24-field row to be skipped, got %+v", d.Observations)
	}
}

func TestParseHandlesCRLFAndExtraColumns(t *testing.T) {
	raw := []byte("header\r\n" + csvRow("US", "United States", "2020", "500") + ",extra,more\r\n" +
		csvRow("CA", "Canada", "2020", "250") + "\r\n")

	d := Parse(raw)
	if d.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", d.Len())
	}
	if d.Observations[1].Value != 250 {
		t.Errorf("Expected CR to be trimmed from the value, got %v", d.Observations[1].Value)
	}
}

func TestParseHeaderOnlyAndEmpty(t *testing.T) {
	for name, raw := range map[string][]byte{
		"empty":       nil,
		"header only": []byte("a,b,c"),
		"header+nl":   []byte("a,b,c\n"),
		"header row":  []byte(csvRow("US", "United States", "2020", "500")),
	} {
		d := Parse(raw)
		if !d.Empty() {
			t.Errorf("%s: expected empty dataset, got %d rows", name, d.Len())
		}
		if d.MinYear != DefaultMinYear || d.MaxYear != DefaultMaxYear {
			t.Errorf("%s: expected default bounds, got %d-%d", name, d.MinYear, d.MaxYear)
		}
		if len(d.Countries) != 0 || len(d.Years) != 0 {
			t.Errorf("%s: expected empty facets", name)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	raw := csvText(
		csvRow("US", "United States", "2020", "500"),
		csvRow("CA", "Canada", "2019", "250"),
	)

	a, b := Parse(raw), Parse(raw)
	if a.Fingerprint != b.Fingerprint {
		t.Fatal("Fingerprints differ for identical input")
	}
	if fmt.Sprint(a.Observations, a.Countries, a.Years) != fmt.Sprint(b.Observations, b.Countries, b.Years) {
		t.Fatal("Datasets differ for identical input")
	}
}

func TestParseParallelMatchesSequential(t *testing.T) {
	var rows []string
	for i := 0; i < 500; i++ {
		value := fmt.Sprintf("%d.5", i+1)
		if i%7 == 0 {
			value = "-1"
		}
		rows = append(rows, csvRow(fmt.Sprintf("C%d", i%40), fmt.Sprintf("Country %02d", i%40), fmt.Sprintf("%d", 2000+i%20), value))
	}
	raw := csvText(rows...)
	content := raw[bytes.IndexByte(raw, '\n')+1:]

	want := parseChunk(content)
	for _, workers := range []int{1, 2, 3, 8, 64} {
		got := parseParallel(content, workers)
		if len(got) != len(want) {
			t.Fatalf("workers=%d: expected %d rows, got %d", workers, len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: row %d differs: %+v vs %+v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestParseRowsSharesRules(t *testing.T) {
	split := func(s string) []string { return strings.Split(s, ",") }
	d := ParseRows([][]string{
		split(csvRow("US", "United States", "2020", "500")), // header, ignored
		split(csvRow("US", "United States", "2020", "500")),
		split(csvRow("FR", "France", "2020", "0")),
		{"too", "short"},
		nil,
	})

	if d.Len() != 1 || d.Observations[0].Country != "United States" {
		t.Fatalf("Unexpected rows %+v", d.Observations)
	}
}

func TestLoadDatasetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bandwidth.csv")
	if err := os.WriteFile(path, csvText(csvRow("US", "United States", "2020", "500")), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDataset(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("Expected 1 row, got %d", d.Len())
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestLoadDatasetFromURL(t *testing.T) {
	body := csvText(csvRow("US", "United States", "2020", "500"), csvRow("CA", "Canada", "2020", "300"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	d, err := LoadDataset(context.Background(), srv.URL+"/data.csv")
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", d.Len())
	}

	if _, err := LoadInput(context.Background(), srv.URL+"/missing.csv"); err == nil {
		t.Fatal("Expected an error for a 404 response")
	}
}

func TestLoadInputRejectsOversizedBody(t *testing.T) {
	body := csvText(csvRow("US", "United States", "2020", "123.45"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	saved := maxRemoteBytes
	defer func() { maxRemoteBytes = saved }()

	maxRemoteBytes = int64(len(body)) - 3
	if _, err := LoadDataset(context.Background(), srv.URL+"/data.csv"); err == nil {
		t.Fatal("Expected an error for a body over the cap")
	}

	maxRemoteBytes = int64(len(body))
	raw, err := LoadInput(context.Background(), srv.URL+"/data.csv")
	if err != nil {
		t.Fatalf("LoadInput at the cap: %v", err)
	}
	if !bytes.Equal(raw, body) {
		t.Fatal("Body at the cap was altered")
	}
}

func TestLoadDatasetFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]string{
		strings.Split(csvRow("code", "name", "year", "value"), ","),
		strings.Split(csvRow("US", "United States", "2020", "500"), ","),
		strings.Split(csvRow("CA", "Canada", "2020", "-3"), ","),
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "bandwidth.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDataset(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if d.Len() != 1 || d.Observations[0].CountryCode != "US" {
		t.Fatalf("Unexpected rows %+v", d.Observations)
	}
	if d.Fingerprint == 0 {
		t.Error("Expected a fingerprint for spreadsheet input")
	}
}

func TestLoadBundledSample(t *testing.T) {
	d, err := LoadDataset(context.Background(), filepath.Join("..", "..", "data", "bandwidth-data.csv"))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if d.Len() != 35 || len(d.Countries) != 7 {
		t.Fatalf("Expected 35 rows over 7 countries, got %d over %d", d.Len(), len(d.Countries))
	}
	if d.MinYear != 2018 || d.MaxYear != 2022 {
		t.Fatalf("Expected 2018-2022, got %d-%d", d.MinYear, d.MaxYear)
	}
	if top := d.TopCountries(2022, 1); len(top) != 1 || top[0].Country != "Sweden" {
		t.Fatalf("Expected Sweden to lead 2022, got %+v", top)
	}
}
