package strategy

import "ssl-backtest/internal/model"

// Summary condenses an annotated run.
type Summary struct {
	Bars         int        `json:"bars"`
	Buys         int        `json:"buys"`
	Sells        int        `json:"sells"`
	Holds        int        `json:"holds"`
	FirstDefined int        `json:"first_defined"` // first bar with both channel lines defined, -1 if none
	FinalSide    model.Side `json:"final_side"`
	Traded       float64    `json:"traded"` // sum of position sizes
}

// Summarize counts signals and derives the side the run ended on.
func Summarize(rows []model.Row) Summary {
	s := Summary{Bars: len(rows), FirstDefined: -1}
	for i := range rows {
		r := &rows[i]
		if s.FirstDefined < 0 && model.IsDefined(r.SSLHigh) && model.IsDefined(r.SSLLow) {
			s.FirstDefined = i
		}
		switch r.Signal {
		case model.Buy:
			s.Buys++
			s.FinalSide = model.Long
		case model.Sell:
			s.Sells++
			s.FinalSide = model.Short
		default:
			s.Holds++
		}
		s.Traded += r.PositionSize
	}
	return s
}
