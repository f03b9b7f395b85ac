package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field names of the input table and the columns the pipeline adds to it.
const (
	FieldOpen         = "open"
	FieldHigh         = "high"
	FieldLow          = "low"
	FieldClose        = "close"
	FieldDir          = "ssl_dir"
	FieldSSLHigh      = "ssl_high"
	FieldSSLLow       = "ssl_low"
	FieldSignal       = "signal"
	FieldPositionSize = "position_size"
)

// RequiredFields are the input fields every bar must expose.
var RequiredFields = []string{FieldOpen, FieldHigh, FieldLow, FieldClose}

// Direction is the SSL regime at one bar.
type Direction int8

const (
	Bearish Direction = -1
	Neutral Direction = 0
	Bullish Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Bearish:
		return "bearish"
	case Bullish:
		return "bullish"
	}
	return "neutral"
}

// Signal is the discrete trade event emitted at one bar.
type Signal int8

const (
	Sell Signal = -1
	Hold Signal = 0
	Buy  Signal = 1
)

func (s Signal) String() string {
	switch s {
	case Sell:
		return "sell"
	case Buy:
		return "buy"
	}
	return "hold"
}

// Side is the position currently held by a signal run.
type Side int8

const (
	Short Side = -1
	Flat  Side = 0
	Long  Side = 1
)

func (s Side) String() string {
	switch s {
	case Short:
		return "short"
	case Long:
		return "long"
	}
	return "flat"
}

// MarshalText encodes the side by name.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a side name.
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "short":
		*s = Short
	case "long":
		*s = Long
	case "flat":
		*s = Flat
	default:
		return fmt.Errorf("unknown side %q", text)
	}
	return nil
}

// IndicatorRow is the SSL channel output for one bar.
type IndicatorRow struct {
	Dir     Direction
	SSLHigh float64
	SSLLow  float64
}

// SignalRow is the signal generator output for one bar.
type SignalRow struct {
	Signal       Signal
	PositionSize float64
}

// Row is a bar annotated with its indicator and signal output.
type Row struct {
	Bar
	IndicatorRow
	SignalRow
}

type rowJSON struct {
	TS           *time.Time `json:"ts,omitempty"`
	Open         *float64   `json:"open"`
	High         *float64   `json:"high"`
	Low          *float64   `json:"low"`
	Close        *float64   `json:"close"`
	Dir          Direction  `json:"ssl_dir"`
	SSLHigh      *float64   `json:"ssl_high"`
	SSLLow       *float64   `json:"ssl_low"`
	Signal       Signal     `json:"signal"`
	PositionSize float64    `json:"position_size"`
}

// MarshalJSON encodes undefined values as null.
func (r Row) MarshalJSON() ([]byte, error) {
	out := rowJSON{
		Open:         Nullable(r.Open),
		High:         Nullable(r.High),
		Low:          Nullable(r.Low),
		Close:        Nullable(r.Close),
		Dir:          r.Dir,
		SSLHigh:      Nullable(r.SSLHigh),
		SSLLow:       Nullable(r.SSLLow),
		Signal:       r.Signal,
		PositionSize: r.PositionSize,
	}
	if !r.TS.IsZero() {
		ts := r.TS
		out.TS = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null as undefined.
func (r *Row) UnmarshalJSON(data []byte) error {
	var in rowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Row{
		Bar: Bar{
			Open:  FromNullable(in.Open),
			High:  FromNullable(in.High),
			Low:   FromNullable(in.Low),
			Close: FromNullable(in.Close),
		},
		IndicatorRow: IndicatorRow{
			Dir:     in.Dir,
			SSLHigh: FromNullable(in.SSLHigh),
			SSLLow:  FromNullable(in.SSLLow),
		},
		SignalRow: SignalRow{Signal: in.Signal, PositionSize: in.PositionSize},
	}
	if in.TS != nil {
		r.TS = *in.TS
	}
	return nil
}

// Nullable returns nil for an undefined value.
func Nullable(v float64) *float64 {
	if !IsDefined(v) {
		return nil
	}
	return &v
}

// FromNullable is the inverse of Nullable.
func FromNullable(p *float64) float64 {
	if p == nil {
		return Undefined()
	}
	return *p
}

// Annotate zips bars with their indicator and signal rows.
// All three slices must have the same length.
func Annotate(bars []Bar, ind []IndicatorRow, sig []SignalRow) []Row {
	rows := make([]Row, len(bars))
	for i := range bars {
		rows[i] = Row{Bar: bars[i], IndicatorRow: ind[i], SignalRow: sig[i]}
	}
	return rows
}
