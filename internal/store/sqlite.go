package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradelab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// ErrNotFound is returned when a requested result does not exist.
var ErrNotFound = errors.New("result not found")

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS results (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy        TEXT    NOT NULL,
	symbols         TEXT    NOT NULL,
	start_ts        INTEGER NOT NULL,
	end_ts          INTEGER NOT NULL,
	initial_capital REAL    NOT NULL,
	final_equity    REAL    NOT NULL,
	total_return    REAL    NOT NULL,
	annual_return   REAL    NOT NULL,
	max_drawdown    REAL    NOT NULL,
	sharpe_ratio    REAL    NOT NULL,
	win_rate        REAL    NOT NULL,
	profit_factor   REAL    NOT NULL,
	total_trades    INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	result_id   INTEGER NOT NULL REFERENCES results(id) ON DELETE CASCADE,
	symbol      TEXT    NOT NULL,
	direction   TEXT    NOT NULL,
	quantity    REAL    NOT NULL,
	entry_price REAL    NOT NULL,
	entry_ts    INTEGER NOT NULL,
	exit_price  REAL    NOT NULL,
	exit_ts     INTEGER NOT NULL,
	pnl         REAL    NOT NULL,
	pnl_pct     REAL    NOT NULL,
	commission  REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_result ON trades(result_id);

CREATE TABLE IF NOT EXISTS equity_points (
	result_id INTEGER NOT NULL REFERENCES results(id) ON DELETE CASCADE,
	ts        INTEGER NOT NULL,
	equity    REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_equity_result ON equity_points(result_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult persists a finished backtest in a single transaction and
// returns the assigned ID.
func (s *SQLiteStore) SaveResult(ctx context.Context, rec *BacktestRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO results (
			strategy, symbols, start_ts, end_ts, initial_capital, final_equity,
			total_return, annual_return, max_drawdown, sharpe_ratio,
			win_rate, profit_factor, total_trades, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Strategy, strings.Join(rec.Symbols, ","),
		rec.Start.UnixMilli(), rec.End.UnixMilli(),
		rec.InitialCapital, rec.FinalEquity,
		rec.TotalReturn, rec.AnnualReturn, rec.MaxDrawdown, rec.SharpeRatio,
		rec.WinRate, rec.ProfitFactor, rec.TotalTrades, created.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("inserting result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, t := range rec.Trades {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trades (
				result_id, symbol, direction, quantity, entry_price, entry_ts,
				exit_price, exit_ts, pnl, pnl_pct, commission
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, t.Symbol, string(t.Direction), t.Quantity,
			t.EntryPrice, t.EntryTime.UnixMilli(),
			t.ExitPrice, t.ExitTime.UnixMilli(),
			t.PnL, t.PnLPct, t.Commission)
		if err != nil {
			return 0, fmt.Errorf("inserting trade: %w", err)
		}
	}

	for _, p := range rec.EquityCurve {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO equity_points (result_id, ts, equity) VALUES (?, ?, ?)`,
			id, p.Timestamp.UnixMilli(), p.Equity)
		if err != nil {
			return 0, fmt.Errorf("inserting equity point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetResult retrieves a single result by ID, including its trades and equity
// curve. Returns ErrNotFound if no such result exists.
func (s *SQLiteStore) GetResult(ctx context.Context, id int64) (*BacktestRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, symbols, start_ts, end_ts, initial_capital,
		       final_equity, total_return, annual_return, max_drawdown,
		       sharpe_ratio, win_rate, profit_factor, total_trades, created_at
		FROM results WHERE id = ?`, id)

	rec, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, direction, quantity, entry_price, entry_ts,
		       exit_price, exit_ts, pnl, pnl_pct, commission
		FROM trades WHERE result_id = ? ORDER BY exit_ts, entry_ts`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t domain.Trade
		var dir string
		var entryTS, exitTS int64
		if err := rows.Scan(&t.Symbol, &dir, &t.Quantity, &t.EntryPrice, &entryTS,
			&t.ExitPrice, &exitTS, &t.PnL, &t.PnLPct, &t.Commission); err != nil {
			return nil, err
		}
		t.Direction = domain.Direction(dir)
		t.EntryTime = time.UnixMilli(entryTS).UTC()
		t.ExitTime = time.UnixMilli(exitTS).UTC()
		rec.Trades = append(rec.Trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	curveRows, err := s.db.QueryContext(ctx,
		`SELECT ts, equity FROM equity_points WHERE result_id = ? ORDER BY ts`, id)
	if err != nil {
		return nil, err
	}
	defer curveRows.Close()
	for curveRows.Next() {
		var ts int64
		var p domain.EquityPoint
		if err := curveRows.Scan(&ts, &p.Equity); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		rec.EquityCurve = append(rec.EquityCurve, p)
	}
	if err := curveRows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListResults returns result summaries, newest first, up to limit. Trades
// and equity curves are not loaded.
func (s *SQLiteStore) ListResults(ctx context.Context, limit int) ([]BacktestRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, symbols, start_ts, end_ts, initial_capital,
		       final_equity, total_return, annual_return, max_drawdown,
		       sharpe_ratio, win_rate, profit_factor, total_trades, created_at
		FROM results ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BacktestRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteResult removes a result and its associated trades and equity curve.
func (s *SQLiteStore) DeleteResult(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*BacktestRecord, error) {
	var rec BacktestRecord
	var symbols string
	var startTS, endTS, createdTS int64
	err := row.Scan(&rec.ID, &rec.Strategy, &symbols, &startTS, &endTS,
		&rec.InitialCapital, &rec.FinalEquity, &rec.TotalReturn,
		&rec.AnnualReturn, &rec.MaxDrawdown, &rec.SharpeRatio,
		&rec.WinRate, &rec.ProfitFactor, &rec.TotalTrades, &createdTS)
	if err != nil {
		return nil, err
	}
	if symbols != "" {
		rec.Symbols = strings.Split(symbols, ",")
	}
	rec.Start = time.UnixMilli(startTS).UTC()
	rec.End = time.UnixMilli(endTS).UTC()
	rec.CreatedAt = time.UnixMilli(createdTS).UTC()
	return &rec, nil
}
