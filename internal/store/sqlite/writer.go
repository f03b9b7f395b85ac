package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"ssl-backtest/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/bars.db"
}

// Writer is a single-connection SQLite writer. Every batch is one transaction.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and creates the schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite writer opened", slog.String("path", cfg.DBPath))
	return &Writer{db: db}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,           -- unix ms, or row position when timed = 0
			timed  INTEGER NOT NULL DEFAULT 1,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			PRIMARY KEY (symbol, timed, ts)
		);

		CREATE TABLE IF NOT EXISTS ssl_signals (
			run_id        TEXT    NOT NULL,
			symbol        TEXT    NOT NULL,
			seq           INTEGER NOT NULL,
			ts            INTEGER,                 -- unix ms, NULL for untimed bars
			open          REAL,
			high          REAL,
			low           REAL,
			close         REAL,
			ssl_dir       INTEGER NOT NULL,
			ssl_high      REAL,
			ssl_low       REAL,
			signal        INTEGER NOT NULL,
			position_size REAL    NOT NULL,
			created_at    INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}

// WriteBars upserts bars for symbol in a single transaction.
func (w *Writer) WriteBars(ctx context.Context, symbol string, bars []model.Bar) error {
	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, ts, timed, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare bars: %w", err)
	}
	defer stmt.Close()

	for i, b := range bars {
		ts, timed := barKey(b, i)
		_, err := stmt.ExecContext(ctx, symbol, ts, timed, nullable(b.Open), nullable(b.High), nullable(b.Low), nullable(b.Close))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit bars: %w", err)
	}
	slog.Debug("sqlite bars committed", slog.String("symbol", symbol), slog.Int("bars", len(bars)), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// WriteRun stores the annotated rows of one run in a single transaction.
func (w *Writer) WriteRun(ctx context.Context, runID, symbol string, rows []model.Row) error {
	start := time.Now()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO ssl_signals
			(run_id, symbol, seq, ts, open, high, low, close, ssl_dir, ssl_high, ssl_low, signal, position_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare ssl_signals: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		r := &rows[i]
		_, err := stmt.ExecContext(ctx, runID, symbol, i, rowTS(r.Bar),
			nullable(r.Open), nullable(r.High), nullable(r.Low), nullable(r.Close),
			int(r.Dir), nullable(r.SSLHigh), nullable(r.SSLLow), int(r.Signal), r.PositionSize)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit ssl_signals: %w", err)
	}
	slog.Info("sqlite run committed", slog.String("run_id", runID), slog.Int("rows", len(rows)), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

// barKey returns the bars key of b: its unix ms timestamp, or its row
// position with timed = 0 when it carries none.
func barKey(b model.Bar, i int) (ts int64, timed bool) {
	if b.TS.IsZero() {
		return int64(i), false
	}
	return b.TS.UnixMilli(), true
}

func rowTS(b model.Bar) sql.NullInt64 {
	if b.TS.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: b.TS.UnixMilli(), Valid: true}
}

func fromMillis(ms sql.NullInt64) time.Time {
	if !ms.Valid {
		return time.Time{}
	}
	return time.UnixMilli(ms.Int64).UTC()
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: model.IsDefined(v)}
}
