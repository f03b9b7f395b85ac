// Package frame holds an ordered table of named float columns: the shape in
// which price series enter the system and annotated series leave it.
//
// A Frame is never modified by the pipeline. Augmenting methods return a copy.
package frame

import (
	"fmt"
	"time"

	"ssl-backtest/internal/model"
)

// Frame is a chronological table. Row i of every column belongs to the same
// time step; the optional index carries its timestamp.
type Frame struct {
	n     int
	index []time.Time
	names []string
	cols  map[string][]float64
}

// New creates an empty frame of n rows.
func New(n int) *Frame {
	return &Frame{n: n, cols: make(map[string][]float64)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Names returns the column names in insertion order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Index returns the row timestamps, or nil when the frame has none.
func (f *Frame) Index() []time.Time {
	if f.index == nil {
		return nil
	}
	out := make([]time.Time, len(f.index))
	copy(out, f.index)
	return out
}

// SetIndex attaches row timestamps.
func (f *Frame) SetIndex(ts []time.Time) error {
	if len(ts) != f.n {
		return fmt.Errorf("frame: index has %d entries, frame has %d rows", len(ts), f.n)
	}
	f.index = make([]time.Time, len(ts))
	copy(f.index, ts)
	return nil
}

// Set stores a copy of values under name, replacing any existing column in place.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.n {
		return fmt.Errorf("frame: column %q has %d values, frame has %d rows", name, len(values), f.n)
	}
	if _, exists := f.cols[name]; !exists {
		f.names = append(f.names, name)
	}
	col := make([]float64, len(values))
	copy(col, values)
	f.cols[name] = col
	return nil
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, true
}

// Has reports whether the named column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Clone returns a deep copy of f.
func (f *Frame) Clone() *Frame {
	c := New(f.n)
	if f.index != nil {
		c.index = make([]time.Time, len(f.index))
		copy(c.index, f.index)
	}
	for _, name := range f.names {
		c.Set(name, f.cols[name])
	}
	return c
}

// Require fails with a *model.SchemaError naming every absent column.
func (f *Frame) Require(names ...string) error {
	have := make(map[string]bool, len(f.cols))
	for name := range f.cols {
		have[name] = true
	}
	if missing := model.MissingFields(have, names...); missing != nil {
		return &model.SchemaError{Missing: missing}
	}
	return nil
}

// Bars converts the OHLC columns into bars.
func (f *Frame) Bars() ([]model.Bar, error) {
	if err := f.Require(model.RequiredFields...); err != nil {
		return nil, err
	}
	open, high, low, cl := f.cols[model.FieldOpen], f.cols[model.FieldHigh], f.cols[model.FieldLow], f.cols[model.FieldClose]
	bars := make([]model.Bar, f.n)
	for i := range bars {
		bars[i] = model.Bar{Open: open[i], High: high[i], Low: low[i], Close: cl[i]}
		if f.index != nil {
			bars[i].TS = f.index[i]
		}
	}
	return bars, nil
}

// FromBars builds an OHLC frame. The index is kept only when the bars carry timestamps.
func FromBars(bars []model.Bar) *Frame {
	f := New(len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	cl := make([]float64, len(bars))
	var ts []time.Time
	for i, b := range bars {
		open[i], high[i], low[i], cl[i] = b.Open, b.High, b.Low, b.Close
		if !b.TS.IsZero() && ts == nil {
			ts = make([]time.Time, len(bars))
		}
	}
	if ts != nil {
		for i, b := range bars {
			ts[i] = b.TS
		}
		f.index = ts
	}
	f.Set(model.FieldOpen, open)
	f.Set(model.FieldHigh, high)
	f.Set(model.FieldLow, low)
	f.Set(model.FieldClose, cl)
	return f
}

// WithIndicator returns a copy of f with ssl_dir, ssl_high and ssl_low added.
func (f *Frame) WithIndicator(rows []model.IndicatorRow) (*Frame, error) {
	if len(rows) != f.n {
		return nil, fmt.Errorf("frame: %d indicator rows for %d frame rows", len(rows), f.n)
	}
	dir := make([]float64, len(rows))
	hi := make([]float64, len(rows))
	lo := make([]float64, len(rows))
	for i, r := range rows {
		dir[i], hi[i], lo[i] = float64(r.Dir), r.SSLHigh, r.SSLLow
	}
	out := f.Clone()
	out.Set(model.FieldDir, dir)
	out.Set(model.FieldSSLHigh, hi)
	out.Set(model.FieldSSLLow, lo)
	return out, nil
}

// WithSignals returns a copy of f with signal and position_size added.
func (f *Frame) WithSignals(rows []model.SignalRow) (*Frame, error) {
	if len(rows) != f.n {
		return nil, fmt.Errorf("frame: %d signal rows for %d frame rows", len(rows), f.n)
	}
	sig := make([]float64, len(rows))
	size := make([]float64, len(rows))
	for i, r := range rows {
		sig[i], size[i] = float64(r.Signal), r.PositionSize
	}
	out := f.Clone()
	out.Set(model.FieldSignal, sig)
	out.Set(model.FieldPositionSize, size)
	return out, nil
}

// WithRows adds every output column of an annotated run.
func (f *Frame) WithRows(rows []model.Row) (*Frame, error) {
	ind := make([]model.IndicatorRow, len(rows))
	sig := make([]model.SignalRow, len(rows))
	for i := range rows {
		ind[i], sig[i] = rows[i].IndicatorRow, rows[i].SignalRow
	}
	out, err := f.WithIndicator(ind)
	if err != nil {
		return nil, err
	}
	return out.WithSignals(sig)
}
