package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"ssl-backtest/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// barColumns must all exist in the bars table before any bar is read.
var barColumns = append([]string{"symbol", "ts"}, model.RequiredFields...)

// Reader provides read-only access to bars and stored runs.
type Reader struct {
	db *sql.DB
}

var _ model.BarSource = (*Reader)(nil)

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("sqlite reader opened", slog.String("path", dbPath))
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// ReadBars returns the bars of symbol in timestamp order. A bars table lacking
// any OHLC column fails with *model.SchemaError before rows are read.
// NULL prices are returned as undefined and untimed bars with a zero TS.
func (r *Reader) ReadBars(ctx context.Context, symbol string) ([]model.Bar, error) {
	have, err := r.checkSchema(ctx)
	if err != nil {
		return nil, err
	}
	timed := "timed"
	if !have["timed"] {
		timed = "1"
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, `+timed+` AS timed, open, high, low, close
		FROM bars
		WHERE symbol = ?
		ORDER BY timed ASC, ts ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var ts int64
		var timed bool
		var open, high, low, cl sql.NullFloat64
		if err := rows.Scan(&ts, &timed, &open, &high, &low, &cl); err != nil {
			return nil, fmt.Errorf("sqlite scan bars: %w", err)
		}
		bars = append(bars, model.Bar{
			TS:    fromMillis(sql.NullInt64{Int64: ts, Valid: timed}),
			Open:  fromNull(open),
			High:  fromNull(high),
			Low:   fromNull(low),
			Close: fromNull(cl),
		})
	}
	return bars, rows.Err()
}

// Symbols lists every symbol with stored bars.
func (r *Reader) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqlite scan symbols: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadRun loads the rows stored for runID in their original order.
func (r *Reader) ReadRun(ctx context.Context, runID string) ([]model.Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, ssl_dir, ssl_high, ssl_low, signal, position_size
		FROM ssl_signals
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query ssl_signals: %w", err)
	}
	defer rows.Close()

	var out []model.Row
	for rows.Next() {
		var ts sql.NullInt64
		var dir, sig int
		var open, high, low, cl, sslHigh, sslLow sql.NullFloat64
		var size float64
		if err := rows.Scan(&ts, &open, &high, &low, &cl, &dir, &sslHigh, &sslLow, &sig, &size); err != nil {
			return nil, fmt.Errorf("sqlite scan ssl_signals: %w", err)
		}
		out = append(out, model.Row{
			Bar: model.Bar{
				TS:    fromMillis(ts),
				Open:  fromNull(open),
				High:  fromNull(high),
				Low:   fromNull(low),
				Close: fromNull(cl),
			},
			IndicatorRow: model.IndicatorRow{Dir: model.Direction(dir), SSLHigh: fromNull(sslHigh), SSLLow: fromNull(sslLow)},
			SignalRow:    model.SignalRow{Signal: model.Signal(sig), PositionSize: size},
		})
	}
	return out, rows.Err()
}

// checkSchema returns the columns of the bars table, failing when a required one is absent.
func (r *Reader) checkSchema(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('bars')`)
	if err != nil {
		return nil, fmt.Errorf("sqlite table info: %w", err)
	}
	defer rows.Close()

	have := make(map[string]bool, len(barColumns))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite scan table info: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if missing := model.MissingFields(have, barColumns...); missing != nil {
		return nil, &model.SchemaError{Missing: missing}
	}
	return have, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return model.Undefined()
	}
	return v.Float64
}
