// Package store defines storage interfaces for persisting and retrieving
// domain objects: OHLCV bars for backtest input and finished backtest
// results for reporting.
package store

import (
	"context"
	"time"

	"tradelab/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// BacktestRecord is the persisted form of a finished backtest: the summary
// metrics plus the full trade ledger and equity curve.
type BacktestRecord struct {
	ID             int64
	Strategy       string
	Symbols        []string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64
	TotalReturn    float64
	AnnualReturn   float64
	MaxDrawdown    float64
	SharpeRatio    float64
	WinRate        float64
	ProfitFactor   float64
	TotalTrades    int
	CreatedAt      time.Time

	Trades      []domain.Trade
	EquityCurve []domain.EquityPoint
}

// ResultStore persists and retrieves backtest results.
type ResultStore interface {
	// SaveResult persists a finished backtest and returns its assigned ID.
	SaveResult(ctx context.Context, rec *BacktestRecord) (int64, error)

	// GetResult retrieves a single result by ID, including its trades and
	// equity curve.
	GetResult(ctx context.Context, id int64) (*BacktestRecord, error)

	// ListResults returns result summaries (no trades, no curve), newest
	// first, up to limit.
	ListResults(ctx context.Context, limit int) ([]BacktestRecord, error)

	// DeleteResult removes a result and its associated trades and curve.
	DeleteResult(ctx context.Context, id int64) error
}
