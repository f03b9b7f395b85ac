package strategy

import (
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"ssl-backtest/internal/model"
)

const (
	DefaultCapital     = 1000.0
	DefaultRiskPercent = 1.0
)

var hundred = decimal.NewFromInt(100)

// Sizer applies a flat fractional sizing rule: every non-hold signal trades
// capital * riskPercent / 100, regardless of price or volatility.
type Sizer struct {
	perTrade float64
}

// NewSizer validates capital and riskPercent. Both must be finite and non-negative;
// every violation is reported.
func NewSizer(capital, riskPercent float64) (Sizer, error) {
	err := multierr.Combine(
		checkAmount("capital", capital),
		checkAmount("risk_percent", riskPercent),
	)
	if err != nil {
		return Sizer{}, err
	}
	size, _ := decimal.NewFromFloat(capital).
		Mul(decimal.NewFromFloat(riskPercent)).
		Div(hundred).
		Float64()
	return Sizer{perTrade: size}, nil
}

// PerTrade returns the size of one non-hold signal.
func (s Sizer) PerTrade() float64 { return s.perTrade }

// Size returns the position size for sig; hold rows are zero.
func (s Sizer) Size(sig model.Signal) float64 {
	if sig == model.Hold {
		return 0
	}
	return s.perTrade
}

func checkAmount(name string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &model.InvalidParameterError{Name: name, Value: v, Reason: "must be finite"}
	case v < 0:
		return &model.InvalidParameterError{Name: name, Value: v, Reason: "must not be negative"}
	}
	return nil
}
