package indicator

import (
	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/model"
)

// SSLChannel computes the SSL Channel over bars with SMA windows of length.
//
// The direction flips bullish when close is strictly above the high average,
// bearish when strictly below the low average, and otherwise repeats the
// previous bar's direction (neutral at index 0). Comparisons against an
// undefined average fall through to that carry-forward.
func SSLChannel(bars []model.Bar, length int) ([]model.IndicatorRow, error) {
	maHigh, err := SMA(model.Highs(bars), length)
	if err != nil {
		return nil, err
	}
	maLow, err := SMA(model.Lows(bars), length)
	if err != nil {
		return nil, err
	}

	rows := make([]model.IndicatorRow, len(bars))
	prev := model.Neutral
	for i := range bars {
		dir := prev
		if model.Compare(bars[i].Close, maHigh[i]) == model.Greater {
			dir = model.Bullish
		} else if model.Compare(bars[i].Close, maLow[i]) == model.Less {
			dir = model.Bearish
		}
		rows[i] = channel(dir, maHigh[i], maLow[i])
		prev = dir
	}
	return rows, nil
}

// channel labels the two averages for dir. Only a bearish regime keeps
// maHigh as the high line; neutral takes the bullish assignment.
func channel(dir model.Direction, maHigh, maLow float64) model.IndicatorRow {
	if dir < 0 {
		return model.IndicatorRow{Dir: dir, SSLHigh: maHigh, SSLLow: maLow}
	}
	return model.IndicatorRow{Dir: dir, SSLHigh: maLow, SSLLow: maHigh}
}

// Directions extracts the direction column.
func Directions(rows []model.IndicatorRow) []model.Direction {
	out := make([]model.Direction, len(rows))
	for i := range rows {
		out[i] = rows[i].Dir
	}
	return out
}

// SSLChannelFrame checks f for the OHLC fields, then returns a copy of f
// augmented with ssl_dir, ssl_high and ssl_low. f itself is not modified.
func SSLChannelFrame(f *frame.Frame, length int) (*frame.Frame, error) {
	bars, err := f.Bars()
	if err != nil {
		return nil, err
	}
	rows, err := SSLChannel(bars, length)
	if err != nil {
		return nil, err
	}
	return f.WithIndicator(rows)
}
