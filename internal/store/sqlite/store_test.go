package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/model"
)

func openPair(t *testing.T) (*Writer, *Reader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.db")
	w, err := New(WriterConfig{DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return w, r, path
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestBars_RoundTrip(t *testing.T) {
	w, r, _ := openPair(t)
	ctx := context.Background()

	// written out of order on purpose
	in := []model.Bar{
		{TS: day(3), Open: 3, High: 4, Low: 2, Close: 3.5},
		{TS: day(1), Open: 1, High: 2, Low: 0.5, Close: model.Undefined()},
		{TS: day(2), Open: 2, High: 3, Low: 1, Close: 2.5},
	}
	require.NoError(t, w.WriteBars(ctx, "AAA", in))
	require.NoError(t, w.WriteBars(ctx, "BBB", in[:1]))

	got, err := r.ReadBars(ctx, "AAA")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day(1), got[0].TS)
	assert.Equal(t, day(3), got[2].TS)
	assert.False(t, model.IsDefined(got[0].Close))
	assert.Equal(t, 2.5, got[1].Close)

	none, err := r.ReadBars(ctx, "ZZZ")
	require.NoError(t, err)
	assert.Empty(t, none)

	symbols, err := r.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB"}, symbols)
}

func TestBars_SubSecondTimestampsKept(t *testing.T) {
	w, r, _ := openPair(t)
	ctx := context.Background()

	f, err := frame.ReadCSV(strings.NewReader(
		"ts,open,high,low,close\n" +
			"1700000000100,1,2,0.5,1.5\n" +
			"1700000000400,2,3,1.5,2.5\n" +
			"1700000000700,3,4,2.5,3.5\n"))
	require.NoError(t, err)
	in, err := f.Bars()
	require.NoError(t, err)
	require.NoError(t, w.WriteBars(ctx, "AAA", in))

	got, err := r.ReadBars(ctx, "AAA")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range in {
		assert.True(t, in[i].TS.Equal(got[i].TS), "bar %d: %v != %v", i, in[i].TS, got[i].TS)
		assert.Equal(t, in[i].Close, got[i].Close)
	}
	assert.Equal(t, 400*time.Millisecond, got[1].TS.Sub(time.UnixMilli(1700000000000)))
}

func TestBars_UntimedKeepOrderAndZeroTS(t *testing.T) {
	w, r, _ := openPair(t)
	ctx := context.Background()

	in := []model.Bar{
		{Open: 5, High: 6, Low: 4, Close: 5},
		{Open: 1, High: 2, Low: 0, Close: 1},
		{Open: 3, High: 4, Low: 2, Close: 3},
	}
	require.NoError(t, w.WriteBars(ctx, "AAA", in))

	got, err := r.ReadBars(ctx, "AAA")
	require.NoError(t, err)
	assert.Equal(t, in, got)
	for _, b := range got {
		assert.True(t, b.TS.IsZero())
	}
}

func TestRun_UntimedRowsReadBackWithZeroTS(t *testing.T) {
	w, r, _ := openPair(t)
	ctx := context.Background()

	rows := []model.Row{
		{Bar: model.Bar{Open: 1, High: 2, Low: 0, Close: 1}, IndicatorRow: model.IndicatorRow{SSLHigh: 1, SSLLow: 2}},
		{Bar: model.Bar{Open: 2, High: 3, Low: 1, Close: 2}, IndicatorRow: model.IndicatorRow{SSLHigh: 1, SSLLow: 2}},
	}
	require.NoError(t, w.WriteRun(ctx, "AAA-2", "AAA", rows))

	got, err := r.ReadRun(ctx, "AAA-2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].TS.IsZero())
	assert.True(t, got[1].TS.IsZero())
	assert.Equal(t, 2.0, got[1].Close)
}

func TestRun_RoundTrip(t *testing.T) {
	w, r, _ := openPair(t)
	ctx := context.Background()

	rows := []model.Row{
		{
			Bar:          model.Bar{TS: day(1), Open: 8, High: 10, Low: 5, Close: 8},
			IndicatorRow: model.IndicatorRow{Dir: model.Neutral, SSLHigh: model.Undefined(), SSLLow: model.Undefined()},
		},
		{
			Bar:          model.Bar{TS: day(2), Open: 11, High: 10, Low: 5, Close: 11},
			IndicatorRow: model.IndicatorRow{Dir: model.Bullish, SSLHigh: 5, SSLLow: 10},
			SignalRow:    model.SignalRow{Signal: model.Buy, PositionSize: 20},
		},
		{
			Bar:          model.Bar{TS: day(3), Open: 3, High: 10, Low: 5, Close: 3},
			IndicatorRow: model.IndicatorRow{Dir: model.Bearish, SSLHigh: 10, SSLLow: 5},
			SignalRow:    model.SignalRow{Signal: model.Sell, PositionSize: 20},
		},
	}
	require.NoError(t, w.WriteRun(ctx, "AAA-1", "AAA", rows))

	got, err := r.ReadRun(ctx, "AAA-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.False(t, model.IsDefined(got[0].SSLHigh))
	assert.Equal(t, rows[1].IndicatorRow, got[1].IndicatorRow)
	assert.Equal(t, rows[1].SignalRow, got[1].SignalRow)
	assert.Equal(t, rows[2].Bar, got[2].Bar)
	assert.Equal(t, model.Sell, got[2].Signal)
}

func TestReadBars_SchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE bars (symbol TEXT, ts INTEGER, open REAL, high REAL, low REAL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadBars(context.Background(), "AAA")
	var se *model.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"close"}, se.Missing)
}

func TestReadBars_NoTable(t *testing.T) {
	r, err := NewReader(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadBars(context.Background(), "AAA")
	assert.True(t, errors.Is(err, model.ErrSchema))
}
