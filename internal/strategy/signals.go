package strategy

import (
	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/indicator"
	"ssl-backtest/internal/model"
)

// SignalLength is the SSL window GenerateSignals always uses.
// Callers that need another window build on indicator.SSLChannel directly,
// or run an Engine with their own Params.
const SignalLength = 10

// Machine tracks the side held by a signal run. The zero value is flat.
//
// A signal fires only on a change into a regime: a bullish direction while
// not long buys, a bearish direction while not short sells, anything else holds.
type Machine struct {
	side model.Side
}

// NewMachine returns a flat machine.
func NewMachine() *Machine { return &Machine{} }

// Side returns the position currently held.
func (m *Machine) Side() model.Side { return m.side }

// Step consumes the next direction and returns the signal it triggers.
func (m *Machine) Step(d model.Direction) model.Signal {
	switch {
	case d == model.Bullish && m.side != model.Long:
		m.side = model.Long
		return model.Buy
	case d == model.Bearish && m.side != model.Short:
		m.side = model.Short
		return model.Sell
	}
	return model.Hold
}

// GenerateFromDirections runs a fresh Machine over dirs and sizes every signal with sizer.
func GenerateFromDirections(dirs []model.Direction, sizer Sizer) []model.SignalRow {
	m := NewMachine()
	out := make([]model.SignalRow, len(dirs))
	for i, d := range dirs {
		sig := m.Step(d)
		out[i] = model.SignalRow{Signal: sig, PositionSize: sizer.Size(sig)}
	}
	return out
}

// GenerateSignals derives buy/sell/hold signals from the SSL direction of bars
// (window SignalLength) and sizes each non-hold signal as riskPercent of capital.
func GenerateSignals(bars []model.Bar, capital, riskPercent float64) ([]model.SignalRow, error) {
	sizer, err := NewSizer(capital, riskPercent)
	if err != nil {
		return nil, err
	}
	ind, err := indicator.SSLChannel(bars, SignalLength)
	if err != nil {
		return nil, err
	}
	return GenerateFromDirections(indicator.Directions(ind), sizer), nil
}

// GenerateSignalsFrame is GenerateSignals over a table: it returns a copy of f
// augmented with the SSL columns and then signal and position_size.
func GenerateSignalsFrame(f *frame.Frame, capital, riskPercent float64) (*frame.Frame, error) {
	bars, err := f.Bars()
	if err != nil {
		return nil, err
	}
	sizer, err := NewSizer(capital, riskPercent)
	if err != nil {
		return nil, err
	}
	ind, err := indicator.SSLChannel(bars, SignalLength)
	if err != nil {
		return nil, err
	}
	out, err := f.WithIndicator(ind)
	if err != nil {
		return nil, err
	}
	return out.WithSignals(GenerateFromDirections(indicator.Directions(ind), sizer))
}
