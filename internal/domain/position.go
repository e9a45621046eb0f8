package domain

import (
	"fmt"
	"time"
)

// Position is one open exposure in a single symbol. It is created by a fill,
// mutated each bar (unrealized P&L, trailing-stop adjustments) and closed
// exactly once; a closed position is retained in the ledger and never
// reopened.
type Position struct {
	Symbol     string
	Direction  Direction
	EntryPrice float64
	EntryTime  time.Time
	Quantity   float64
	EntryFee   float64 // commission paid on the opening fill
	StopLoss   float64 // 0 = unset
	TakeProfit float64 // 0 = unset
	Status     PositionStatus

	ExitPrice float64
	ExitTime  time.Time
	PnL       float64 // realized, set on close
}

// NewPosition opens a position. Quantity must be positive, and when both
// protective bounds are set they must bracket the entry price on the correct
// sides for the direction.
func NewPosition(symbol string, dir Direction, entryPrice float64, entryTime time.Time, qty float64) (*Position, error) {
	if _, err := ParseDirection(string(dir)); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: position quantity must be positive, got %v", ErrConfig, qty)
	}
	return &Position{
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: entryPrice,
		EntryTime:  entryTime,
		Quantity:   qty,
		Status:     PositionStatusOpen,
	}, nil
}

// SetBounds installs stop-loss and/or take-profit levels (0 leaves a bound
// unset). For a long both bounds must satisfy stop < entry < target; for a
// short the ordering is reversed.
func (p *Position) SetBounds(stopLoss, takeProfit float64) error {
	if stopLoss != 0 && takeProfit != 0 {
		if p.Direction == DirectionLong && !(stopLoss < p.EntryPrice && p.EntryPrice < takeProfit) {
			return fmt.Errorf("%w: long bounds must satisfy stop %v < entry %v < target %v",
				ErrConfig, stopLoss, p.EntryPrice, takeProfit)
		}
		if p.Direction == DirectionShort && !(takeProfit < p.EntryPrice && p.EntryPrice < stopLoss) {
			return fmt.Errorf("%w: short bounds must satisfy target %v < entry %v < stop %v",
				ErrConfig, takeProfit, p.EntryPrice, stopLoss)
		}
	}
	if stopLoss != 0 {
		p.StopLoss = stopLoss
	}
	if takeProfit != 0 {
		p.TakeProfit = takeProfit
	}
	return nil
}

// UnrealizedPnL returns the mark-to-market P&L at the given price. Once the
// position is closed it always returns the realized P&L, regardless of the
// price passed in.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Status == PositionStatusClosed {
		return p.PnL
	}
	if p.Direction == DirectionLong {
		return (price - p.EntryPrice) * p.Quantity
	}
	return (p.EntryPrice - price) * p.Quantity
}

// StopTriggered reports whether the bar's range reached the stop-loss, and
// the price the forced exit fills at.
func (p *Position) StopTriggered(bar Bar) (price float64, ok bool) {
	if p.Status != PositionStatusOpen || p.StopLoss == 0 {
		return 0, false
	}
	if p.Direction == DirectionLong && bar.Low <= p.StopLoss {
		return p.StopLoss, true
	}
	if p.Direction == DirectionShort && bar.High >= p.StopLoss {
		return p.StopLoss, true
	}
	return 0, false
}

// TakeProfitTriggered reports whether the bar's range reached the take-profit
// target, and the price the forced exit fills at.
func (p *Position) TakeProfitTriggered(bar Bar) (price float64, ok bool) {
	if p.Status != PositionStatusOpen || p.TakeProfit == 0 {
		return 0, false
	}
	if p.Direction == DirectionLong && bar.High >= p.TakeProfit {
		return p.TakeProfit, true
	}
	if p.Direction == DirectionShort && bar.Low <= p.TakeProfit {
		return p.TakeProfit, true
	}
	return 0, false
}

// Close realizes the position at the given exit price and returns the P&L.
// Closing is one-way: a second Close fails.
func (p *Position) Close(exitPrice float64, exitTime time.Time) (float64, error) {
	if p.Status == PositionStatusClosed {
		return 0, fmt.Errorf("position %s already closed", p.Symbol)
	}
	p.ExitPrice = exitPrice
	p.ExitTime = exitTime
	p.Status = PositionStatusClosed
	if p.Direction == DirectionLong {
		p.PnL = (exitPrice - p.EntryPrice) * p.Quantity
	} else {
		p.PnL = (p.EntryPrice - exitPrice) * p.Quantity
	}
	return p.PnL, nil
}
