package domain

import (
	"fmt"
	"time"
)

// Order is a request to trade that the backtest engine evaluates once per
// bar. Limit, stop and stop-limit orders fill at their trigger price when the
// bar's traded range reaches it; the fill is not improved by intrabar
// movement (optimistic-fill simplification, kept from the reference model).
type Order struct {
	Symbol    string
	Type      OrderType
	Side      OrderSide
	Quantity  float64
	Price     float64 // limit price for limit orders
	StopPrice float64 // trigger price for stop and stop-limit orders
	LimitCap  float64 // limit bound for stop-limit orders
	Status    OrderStatus

	// StopLoss/TakeProfit, when non-zero, are attached to the position this
	// order opens.
	StopLoss   float64
	TakeProfit float64

	FilledPrice float64
	FilledTime  time.Time
}

// NewOrder creates a pending order. Quantity must be positive and the price
// fields required by the order type must be set.
func NewOrder(symbol string, typ OrderType, side OrderSide, qty float64) (*Order, error) {
	switch typ {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
	default:
		return nil, fmt.Errorf("%w: unknown order type %q", ErrConfig, typ)
	}
	switch side {
	case OrderSideBuy, OrderSideSell:
	default:
		return nil, fmt.Errorf("%w: unknown order side %q", ErrConfig, side)
	}
	if qty <= 0 {
		return nil, fmt.Errorf("%w: order quantity must be positive, got %v", ErrConfig, qty)
	}
	return &Order{
		Symbol:   symbol,
		Type:     typ,
		Side:     side,
		Quantity: qty,
		Status:   OrderStatusPending,
	}, nil
}

// Executable reports whether a pending order can fill against the given bar,
// and at which price. Market orders always fill, at the bar close. Limit and
// stop orders trigger when the bar's high/low range reaches their price and
// fill exactly at it.
func (o *Order) Executable(bar Bar) (price float64, ok bool) {
	if o.Status != OrderStatusPending {
		return 0, false
	}

	switch o.Type {
	case OrderTypeMarket:
		return bar.Close, true

	case OrderTypeLimit:
		if o.Side == OrderSideBuy && bar.Low <= o.Price {
			return o.Price, true
		}
		if o.Side == OrderSideSell && bar.High >= o.Price {
			return o.Price, true
		}

	case OrderTypeStop:
		if o.Side == OrderSideBuy && bar.High >= o.StopPrice {
			return o.StopPrice, true
		}
		if o.Side == OrderSideSell && bar.Low <= o.StopPrice {
			return o.StopPrice, true
		}

	case OrderTypeStopLimit:
		// Stop condition plus the limit bound on the fill price.
		if o.Side == OrderSideBuy && bar.High >= o.StopPrice && o.StopPrice <= o.LimitCap {
			return o.StopPrice, true
		}
		if o.Side == OrderSideSell && bar.Low <= o.StopPrice && o.StopPrice >= o.LimitCap {
			return o.StopPrice, true
		}
	}
	return 0, false
}

// Fill marks the order filled at the given price and time. Filling a
// non-pending order is a programming error and fails.
func (o *Order) Fill(price float64, t time.Time) error {
	if o.Status != OrderStatusPending {
		return fmt.Errorf("cannot fill %s order", o.Status)
	}
	o.FilledPrice = price
	o.FilledTime = t
	o.Status = OrderStatusFilled
	return nil
}

// Cancel marks a pending order cancelled. Cancelling a filled order fails
// and is reported to the caller; it is not fatal.
func (o *Order) Cancel() error {
	if o.Status == OrderStatusFilled {
		return fmt.Errorf("cannot cancel filled order for %s", o.Symbol)
	}
	o.Status = OrderStatusCancelled
	return nil
}
