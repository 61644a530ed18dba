package engine

import (
	"bytes"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"bandwidth/internal/models"

	"github.com/zeebo/xxh3"
)

// Positional layout of the source table. Columns are addressed by index, not
// by header name; the header row is never inspected.
const (
	ColCountryCode = 5
	ColCountryName = 6
	ColYear        = 23
	ColValue       = 24

	// MinFields is the narrowest row that still carries every column above.
	MinFields = ColValue + 1
)

// Inputs below this size are parsed on the calling goroutine.
const parallelThreshold = 1 << 20

// --- 1. ROW VALIDATION ---

// observationFromFields applies the acceptance rules to the four raw fields
// of a row. ok is false for any row that must be dropped.
func observationFromFields(code, name, year, value string) (models.Observation, bool) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return models.Observation{}, false
	}

	y, ok := leadingInt(strings.TrimSpace(year))
	if !ok {
		return models.Observation{}, false
	}

	v, ok := leadingFloat(strings.TrimSpace(value))
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return models.Observation{}, false
	}

	return models.Observation{Country: name, CountryCode: code, Year: y, Value: v}, true
}

// leadingInt reads the decimal integer at the start of s and ignores whatever
// follows it, so "2020.0" and "2020 (est.)" both read as 2020. Years must fit
// in an int32.
func leadingInt(s string) (int, bool) {
	n := scanSign(s)
	n += scanDigits(s[n:])
	if n == 0 || !isDigit(s[n-1]) {
		return 0, false
	}
	y, err := strconv.ParseInt(s[:n], 10, 32)
	if err != nil {
		return 0, false
	}
	return int(y), true
}

// leadingFloat reads the longest decimal number at the start of s, with an
// optional fraction and exponent, and ignores the rest: "300 Kbps" is 300.
// Values that overflow float64 are rejected.
func leadingFloat(s string) (float64, bool) {
	n := scanSign(s)
	intDigits := scanDigits(s[n:])
	n += intDigits
	fracDigits := 0
	if n < len(s) && s[n] == '.' {
		fracDigits = scanDigits(s[n+1:])
		if fracDigits > 0 {
			n += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false
	}
	if n < len(s) && (s[n] == 'e' || s[n] == 'E') {
		exp := n + 1
		exp += scanSign(s[exp:])
		if d := scanDigits(s[exp:]); d > 0 {
			n = exp + d
		}
	}
	v, err := strconv.ParseFloat(s[:n], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func scanSign(s string) int {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		return 1
	}
	return 0
}

func scanDigits(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	return n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// parseLine hops over the comma separated fields of one line and keeps only
// the four positional columns. Lines with fewer than MinFields fields are
// rejected without partial extraction.
func parseLine(line []byte) (models.Observation, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		return models.Observation{}, false
	}

	var code, name, year, value []byte
	rest := line
	for i := 0; i <= ColValue; i++ {
		field, tail, found := bytes.Cut(rest, sep)
		switch i {
		case ColCountryCode:
			code = field
		case ColCountryName:
			name = field
		case ColYear:
			year = field
		case ColValue:
			value = field
		}
		if i == ColValue {
			break
		}
		if !found {
			return models.Observation{}, false
		}
		rest = tail
	}

	return observationFromFields(string(code), string(name), string(year), string(value))
}

var sep = []byte{','}

// --- 2. TEXT PARSER ---

// Parse turns raw delimited text into a Dataset. The first line is a header
// and is skipped. Malformed, incomplete or non-positive rows are dropped
// silently; Parse never fails and an input without valid rows yields an
// empty Dataset.
func Parse(raw []byte) *Dataset {
	content := raw
	if idx := bytes.IndexByte(content, '\n'); idx != -1 {
		content = content[idx+1:]
	} else {
		content = nil
	}

	var obs []models.Observation
	if len(content) < parallelThreshold {
		obs = parseChunk(content)
	} else {
		obs = parseParallel(content, runtime.NumCPU())
	}

	d := NewDataset(obs)
	d.Fingerprint = xxh3.Hash(raw)
	return d
}

func parseChunk(chunk []byte) []models.Observation {
	var out []models.Observation
	for len(chunk) > 0 {
		line := chunk
		if i := bytes.IndexByte(chunk, '\n'); i != -1 {
			line, chunk = chunk[:i], chunk[i+1:]
		} else {
			chunk = nil
		}
		if o, ok := parseLine(line); ok {
			out = append(out, o)
		}
	}
	return out
}

// parseParallel splits content into newline aligned chunks, validates them
// concurrently and concatenates the results in chunk order, so the output is
// identical to parseChunk(content).
func parseParallel(content []byte, numWorkers int) []models.Observation {
	if numWorkers < 1 {
		numWorkers = 1
	}
	chunkSize := len(content) / numWorkers

	// Both neighbours of a boundary align it the same way, so every line
	// belongs to exactly one chunk.
	align := func(pos int) int {
		if pos <= 0 {
			return 0
		}
		if pos >= len(content) {
			return len(content)
		}
		if i := bytes.IndexByte(content[pos:], '\n'); i != -1 {
			return pos + i + 1
		}
		return len(content)
	}

	results := make([][]models.Observation, numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := align(w * chunkSize)
		end := len(content)
		if w < numWorkers-1 {
			end = align((w + 1) * chunkSize)
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(idx int, chunk []byte) {
			defer wg.Done()
			results[idx] = parseChunk(chunk)
		}(w, content[start:end])
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]models.Observation, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// --- 3. ROW PARSER ---

// ParseRows applies the same rules as Parse to rows that were already split
// into cells, e.g. by a spreadsheet reader. rows[0] is the header.
func ParseRows(rows [][]string) *Dataset {
	var obs []models.Observation
	for i, row := range rows {
		if i == 0 || len(row) < MinFields {
			continue
		}
		o, ok := observationFromFields(row[ColCountryCode], row[ColCountryName], row[ColYear], row[ColValue])
		if ok {
			obs = append(obs, o)
		}
	}
	return NewDataset(obs)
}
