package model

import "context"

// ── Storage ports ──
// Concrete stores (SQLite, Redis) satisfy these so the run engine and the
// gateway never depend on a driver.

// BarSource reads chronologically ordered bars for a symbol.
type BarSource interface {
	ReadBars(ctx context.Context, symbol string) ([]Bar, error)
	Symbols(ctx context.Context) ([]string, error)
}

// RunSink persists the annotated rows of one run.
type RunSink interface {
	WriteRun(ctx context.Context, runID, symbol string, rows []Row) error
}

// RunPublisher pushes the annotated rows of one run to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, symbol string, rows []Row) error
}
