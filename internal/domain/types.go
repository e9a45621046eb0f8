// Package domain defines the core market-data and trading types shared by
// the backtest engine, strategies, and stores.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the error classes the platform distinguishes. Callers
// classify with errors.Is; everything is wrapped with context via fmt.Errorf.
var (
	// ErrConfig marks invalid construction parameters (unknown direction,
	// non-positive period). Rejected before a run ever starts.
	ErrConfig = errors.New("invalid configuration")

	// ErrData marks bad input data (non-monotonic timestamps, broken OHLC
	// invariants, misaligned symbols). Rejected before the simulation loop.
	ErrData = errors.New("invalid data")

	// ErrStrategy marks a failure inside a strategy callback. Fatal for the
	// run: partial results are discarded.
	ErrStrategy = errors.New("strategy error")
)

// Direction is the side of a position.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ParseDirection validates and normalises a direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionLong, DirectionShort:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrConfig, s)
}

// OrderSide is the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType determines how an order becomes executable.
type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

// OrderStatus is the lifecycle state of an order. The pending→filled and
// pending→cancelled transitions are terminal and mutually exclusive.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Bar is one OHLCV sample for one symbol at one timestamp. Bars are created
// once from external data and never mutated.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Validate checks the intra-bar OHLC invariants.
func (b Bar) Validate() error {
	if b.High < b.Open || b.High < b.Close || b.High < b.Low {
		return fmt.Errorf("%w: bar %s@%s high %v below open/close/low",
			ErrData, b.Symbol, b.Timestamp.Format(time.RFC3339), b.High)
	}
	if b.Low > b.Open || b.Low > b.Close {
		return fmt.Errorf("%w: bar %s@%s low %v above open/close",
			ErrData, b.Symbol, b.Timestamp.Format(time.RFC3339), b.Low)
	}
	return nil
}

// ValidateSeries checks a single symbol's bar sequence: per-bar OHLC
// invariants and strictly increasing timestamps.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !bars[i-1].Timestamp.Before(b.Timestamp) {
			return fmt.Errorf("%w: %s timestamps not strictly increasing at index %d",
				ErrData, b.Symbol, i)
		}
	}
	return nil
}

// Trade is an immutable ledger record created when a position closes.
type Trade struct {
	Symbol     string
	Direction  Direction
	Quantity   float64
	EntryPrice float64
	EntryTime  time.Time
	ExitPrice  float64
	ExitTime   time.Time
	PnL        float64 // gross, excludes commission
	PnLPct     float64
	Commission float64 // entry + exit commission paid for this round trip
}

// EquityPoint is one (timestamp, equity) sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}
