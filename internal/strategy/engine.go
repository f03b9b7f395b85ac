// Package strategy turns SSL Channel directions into trade signals.
//
// Machine is the edge-triggered position state machine, Sizer the fractional
// sizing rule, and Engine composes both with the indicator into one run over
// a price series.
package strategy

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/indicator"
	"ssl-backtest/internal/logger"
	"ssl-backtest/internal/model"
)

// Params configures one run.
type Params struct {
	Length      int     `json:"length"`
	Capital     float64 `json:"capital"`
	RiskPercent float64 `json:"risk_percent"`
}

// DefaultParams returns length 10, capital 1000, risk 1%.
func DefaultParams() Params {
	return Params{
		Length:      indicator.DefaultLength,
		Capital:     DefaultCapital,
		RiskPercent: DefaultRiskPercent,
	}
}

// Validate reports every out-of-range parameter.
func (p Params) Validate() error {
	_, sizeErr := NewSizer(p.Capital, p.RiskPercent)
	return multierr.Combine(indicator.ValidateLength(p.Length), sizeErr)
}

// Recorder receives run outcomes, e.g. for metrics.
type Recorder interface {
	ObserveRun(s Summary, elapsed time.Duration)
	ObserveFailure(err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(Summary, time.Duration) {}
func (nopRecorder) ObserveFailure(error)              {}

// Result is the annotated series of one run.
type Result struct {
	Rows    []model.Row `json:"rows"`
	Summary Summary     `json:"summary"`
}

// Engine runs the SSL indicator and signal generator over whole series.
// It holds no state between runs and is safe for concurrent use.
type Engine struct {
	params Params
	sizer  Sizer
	rec    Recorder
	log    *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder sets the run recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.rec = r }
}

// WithLogger sets the logger used for run start/finish.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine validates p and returns an engine for it. A rejection is logged
// at warn on the engine's logger; recording it is left to the caller.
func NewEngine(p Params, opts ...Option) (*Engine, error) {
	e := &Engine{
		params: p,
		rec:    nopRecorder{},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := p.Validate(); err != nil {
		e.log.Warn("ssl engine rejected params",
			slog.Int("length", p.Length),
			slog.Float64("capital", p.Capital),
			slog.Float64("risk_percent", p.RiskPercent),
			slog.String("error", err.Error()))
		return nil, err
	}
	e.sizer, _ = NewSizer(p.Capital, p.RiskPercent)
	return e, nil
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params { return e.params }

// Run annotates bars with the SSL channel of the engine's length and the
// signals derived from its direction.
func (e *Engine) Run(ctx context.Context, bars []model.Bar) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	e.log.Info("ssl run started", append(logger.LogWithRun(ctx),
		slog.Int("bars", len(bars)),
		slog.Int("length", e.params.Length),
	)...)

	ind, err := indicator.SSLChannel(bars, e.params.Length)
	if err != nil {
		e.fail(ctx, err)
		return nil, err
	}
	sig := GenerateFromDirections(indicator.Directions(ind), e.sizer)
	rows := model.Annotate(bars, ind, sig)
	summary := Summarize(rows)

	elapsed := time.Since(start)
	e.rec.ObserveRun(summary, elapsed)
	e.log.Info("ssl run complete", append(logger.LogWithRun(ctx),
		slog.Int("bars", summary.Bars),
		slog.Int("buys", summary.Buys),
		slog.Int("sells", summary.Sells),
		slog.String("final_side", summary.FinalSide.String()),
		slog.Duration("elapsed", elapsed),
	)...)

	return &Result{Rows: rows, Summary: summary}, nil
}

// RunFrame checks f for the OHLC fields before running over its bars.
func (e *Engine) RunFrame(ctx context.Context, f *frame.Frame) (*Result, error) {
	bars, err := f.Bars()
	if err != nil {
		e.fail(ctx, err)
		return nil, err
	}
	return e.Run(ctx, bars)
}

func (e *Engine) fail(ctx context.Context, err error) {
	e.rec.ObserveFailure(err)
	e.log.Warn("ssl run rejected", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
}
