// Package notification delivers fresh buy/sell signals to external channels.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"ssl-backtest/internal/model"
)

// Alert is one signal event worth telling someone about.
type Alert struct {
	Symbol       string       `json:"symbol"`
	Signal       model.Signal `json:"-"`
	Side         string       `json:"signal"`
	Close        float64      `json:"close"`
	PositionSize float64      `json:"position_size"`
	BarTS        time.Time    `json:"bar_ts"`
}

// Title is a one-line headline, e.g. "BUY AAPL".
func (a Alert) Title() string {
	switch a.Signal {
	case model.Buy:
		return "BUY " + a.Symbol
	case model.Sell:
		return "SELL " + a.Symbol
	}
	return "HOLD " + a.Symbol
}

// Message describes the bar and the sized position.
func (a Alert) Message() string {
	msg := fmt.Sprintf("close %.4f, size %.2f", a.Close, a.PositionSize)
	if !a.BarTS.IsZero() {
		msg += " at " + a.BarTS.UTC().Format(time.RFC3339)
	}
	return msg
}

// LatestAlert returns an alert when the last row of a run carries a buy or
// sell. A run that ends on hold has nothing new to report.
func LatestAlert(symbol string, rows []model.Row) (Alert, bool) {
	if len(rows) == 0 {
		return Alert{}, false
	}
	last := rows[len(rows)-1]
	if last.Signal == model.Hold {
		return Alert{}, false
	}
	return Alert{
		Symbol:       symbol,
		Signal:       last.Signal,
		Side:         last.Signal.String(),
		Close:        last.Close,
		PositionSize: last.PositionSize,
		BarTS:        last.TS,
	}, true
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, alert Alert) error {
	slog.Info("signal alert",
		slog.String("title", alert.Title()),
		slog.String("message", alert.Message()))
	return nil
}

// Multi sends to every notifier and combines their failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var err error
	for _, n := range m {
		err = multierr.Append(err, n.Send(ctx, alert))
	}
	return err
}
