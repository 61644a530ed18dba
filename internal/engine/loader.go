package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"bandwidth/internal/logging"

	"github.com/zeebo/xxh3"
)

// maxRemoteBytes caps the size of a downloaded source. Larger bodies are an
// error rather than a truncated read.
var maxRemoteBytes int64 = 256 << 20

// LoadInput fetches the raw bytes of source, which is either a local path or
// an http(s) URL.
func LoadInput(ctx context.Context, source string) ([]byte, error) {
	if isRemote(source) {
		return download(ctx, source)
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return content, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if int64(len(data)) > maxRemoteBytes {
		return nil, fmt.Errorf("download %s: body exceeds %d bytes", url, maxRemoteBytes)
	}
	return data, nil
}

// LoadDataset runs LoadInput for source and parses the result. Spreadsheet
// sources (.xlsx, .xls) go through the sheet readers, everything else is
// treated as comma separated text.
func LoadDataset(ctx context.Context, source string) (*Dataset, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	raw, err := LoadInput(ctx, source)
	if err != nil {
		return nil, err
	}

	var d *Dataset
	switch strings.ToLower(path.Ext(stripQuery(source))) {
	case ".xlsx":
		rows, err := ReadXLSXRows(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		d = ParseRows(rows)
		d.Fingerprint = xxh3.Hash(raw)
	case ".xls":
		rows, err := ReadXLSRows(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", source, err)
		}
		d = ParseRows(rows)
		d.Fingerprint = xxh3.Hash(raw)
	default:
		d = Parse(raw)
	}

	log.Info(ctx, "dataset loaded",
		logging.String("source", source),
		logging.Int("bytes", len(raw)),
		logging.Int("observations", d.Len()),
		logging.Int("countries", len(d.Countries)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return d, nil
}

func stripQuery(source string) string {
	if i := strings.IndexAny(source, "?#"); i != -1 {
		return source[:i]
	}
	return source
}
