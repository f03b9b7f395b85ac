package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ssl-backtest/internal/model"
)

// indexColumns are header names read as the row timestamp instead of a value column.
var indexColumns = map[string]bool{"ts": true, "time": true, "timestamp": true, "date": true}

// intColumns are written without a fractional part.
var intColumns = map[string]bool{model.FieldDir: true, model.FieldSignal: true}

var tsLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// ReadCSV decodes a header-first CSV table. Header names are trimmed and
// lower-cased. Empty and "NaN" cells are undefined.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("frame: empty csv")
		}
		return nil, fmt.Errorf("frame: read header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("frame: read records: %w", err)
	}

	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	indexCol := -1
	for j, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if seen[name] {
			return nil, fmt.Errorf("frame: duplicate column %q", name)
		}
		seen[name] = true
		names[j] = name
		if indexCol < 0 && indexColumns[name] {
			indexCol = j
		}
	}

	f := New(len(records))
	cols := make([][]float64, len(header))
	for j := range cols {
		cols[j] = make([]float64, len(records))
	}
	var index []time.Time
	if indexCol >= 0 {
		index = make([]time.Time, len(records))
	}

	for i, rec := range records {
		for j, cell := range rec {
			if j == indexCol {
				ts, err := parseTS(cell)
				if err != nil {
					return nil, fmt.Errorf("frame: row %d column %q: %w", i+1, names[j], err)
				}
				index[i] = ts
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("frame: row %d column %q: %w", i+1, names[j], err)
			}
			cols[j][i] = v
		}
	}

	for j, name := range names {
		if j == indexCol {
			continue
		}
		if err := f.Set(name, cols[j]); err != nil {
			return nil, err
		}
	}
	if index != nil {
		if err := f.SetIndex(index); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteCSV encodes f with a header row. The index, when present, is written
// first as "ts" in RFC 3339, keeping any sub-second part. Undefined values
// are written as empty cells.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(f.names)+1)
	if f.index != nil {
		header = append(header, "ts")
	}
	header = append(header, f.names...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("frame: write header: %w", err)
	}

	rec := make([]string, len(header))
	for i := 0; i < f.n; i++ {
		j := 0
		if f.index != nil {
			rec[j] = f.index[i].UTC().Format(time.RFC3339Nano)
			j++
		}
		for _, name := range f.names {
			rec[j] = formatCell(f.cols[name][i], intColumns[name])
			j++
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("frame: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return model.Undefined(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatCell(v float64, asInt bool) string {
	if !model.IsDefined(v) {
		return ""
	}
	if asInt {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseTS accepts RFC 3339, "2006-01-02 15:04:05", "2006-01-02" or unix
// seconds; integers above 1e12 are taken as unix milliseconds.
func parseTS(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range tsLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
