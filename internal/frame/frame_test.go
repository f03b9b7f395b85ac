package frame

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssl-backtest/internal/model"
)

const sample = `Date, Open, High, Low, Close, Volume
2024-01-02,100,110,95,105,1200
2024-01-03,105,112,101,,900
2024-01-04,108,115,104,NaN,1500
`

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"open", "high", "low", "close", "volume"}, f.Names())

	idx := f.Index()
	require.Len(t, idx, 3)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), idx[1])

	cl, ok := f.Column("close")
	require.True(t, ok)
	assert.Equal(t, 105.0, cl[0])
	assert.False(t, model.IsDefined(cl[1]))
	assert.False(t, model.IsDefined(cl[2]))
}

func TestReadCSV_UnixTimestamps(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("ts,open,high,low,close\n1704153600,1,2,0.5,1.5\n1704240000000,1,2,0.5,1.5\n"))
	require.NoError(t, err)
	idx := f.Index()
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), idx[0])
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), idx[1])
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"duplicate column", "open,open\n1,2\n"},
		{"bad number", "open,high,low,close\n1,x,1,1\n"},
		{"bad timestamp", "ts,open\nyesterday,1\n"},
		{"ragged row", "open,high\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestFrame_Bars(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(sample))
	require.NoError(t, err)

	bars, err := f.Bars()
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, model.Bar{TS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 110, Low: 95, Close: 105}, bars[0])
}

func TestFrame_RequireNamesEveryMissingField(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("open,close\n1,1\n"))
	require.NoError(t, err)

	_, err = f.Bars()
	var se *model.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"high", "low"}, se.Missing)
}

func TestFrame_SetLengthMismatch(t *testing.T) {
	f := New(2)
	assert.Error(t, f.Set("x", []float64{1}))
	assert.Error(t, f.SetIndex([]time.Time{time.Now()}))
}

func TestFrame_AugmentCopies(t *testing.T) {
	in := FromBars([]model.Bar{{Open: 1, High: 2, Low: 0, Close: 1}, {Open: 1, High: 2, Low: 0, Close: 3}})

	out, err := in.WithRows([]model.Row{
		{IndicatorRow: model.IndicatorRow{Dir: model.Neutral, SSLHigh: model.Undefined(), SSLLow: model.Undefined()}},
		{IndicatorRow: model.IndicatorRow{Dir: model.Bullish, SSLHigh: 0, SSLLow: 2}, SignalRow: model.SignalRow{Signal: model.Buy, PositionSize: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "high", "low", "close"}, in.Names())
	assert.Equal(t, []string{"open", "high", "low", "close", "ssl_dir", "ssl_high", "ssl_low", "signal", "position_size"}, out.Names())

	sig, _ := out.Column(model.FieldSignal)
	assert.Equal(t, []float64{0, 1}, sig)

	_, err = in.WithSignals([]model.SignalRow{{}})
	assert.Error(t, err)
}

func TestFrame_ColumnIsACopy(t *testing.T) {
	f := New(1)
	require.NoError(t, f.Set("x", []float64{1}))
	col, _ := f.Column("x")
	col[0] = 99
	again, _ := f.Column("x")
	assert.Equal(t, 1.0, again[0])
}

func TestWriteCSV(t *testing.T) {
	f := FromBars([]model.Bar{
		{TS: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{TS: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 1.5, High: 2.5, Low: 1, Close: 2},
	})
	out, err := f.WithIndicator([]model.IndicatorRow{
		{Dir: model.Neutral, SSLHigh: model.Undefined(), SSLLow: model.Undefined()},
		{Dir: model.Bearish, SSLHigh: 2.25, SSLLow: 0.75},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, out.WriteCSV(&buf))

	want := "ts,open,high,low,close,ssl_dir,ssl_high,ssl_low\n" +
		"2024-01-02T00:00:00Z,1,2,0.5,1.5,0,,\n" +
		"2024-01-03T00:00:00Z,1.5,2.5,1,2,-1,2.25,0.75\n"
	assert.Equal(t, want, buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, out.Names(), back.Names())
	assert.Equal(t, out.Index(), back.Index())
}

func TestWriteCSV_KeepsSubSecondIndex(t *testing.T) {
	f, err := ReadCSV(strings.NewReader("ts,open,high,low,close\n" +
		"1700000000100,1,2,0.5,1.5\n" +
		"1700000000400,2,3,1.5,2.5\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Contains(t, buf.String(), "2023-11-14T22:13:20.1Z,")
	assert.Contains(t, buf.String(), "2023-11-14T22:13:20.4Z,")

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Index(), back.Index())
}
