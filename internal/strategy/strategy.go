// Package strategy defines the Strategy interface for trading strategies, a
// Registry for managing multiple implementations, and the Backtester that
// replays historical bars through a strategy.
package strategy

import (
	"context"
	"sort"
	"time"

	"tradelab/internal/domain"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Init performs any one-time setup required before the strategy begins
	// processing market data.
	Init(ctx context.Context) error

	// OnBar is called once per bar with a view of all data up to and
	// including the current bar. Orders created through the view become
	// eligible for execution on the following bar. Returning an error aborts
	// the backtest.
	OnBar(ctx context.Context, view *View) error
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Order options
// ---------------------------------------------------------------------------

// OrderOption customises an order created through a View. The default is a
// plain market order.
type OrderOption func(*domain.Order)

// WithLimit turns the order into a limit order at the given price.
func WithLimit(price float64) OrderOption {
	return func(o *domain.Order) {
		o.Type = domain.OrderTypeLimit
		o.Price = price
	}
}

// WithStop turns the order into a stop order triggering at the given price.
func WithStop(price float64) OrderOption {
	return func(o *domain.Order) {
		o.Type = domain.OrderTypeStop
		o.StopPrice = price
	}
}

// WithStopLimit turns the order into a stop-limit order: it triggers at stop
// and fills only while the price respects the limit bound.
func WithStopLimit(stop, limit float64) OrderOption {
	return func(o *domain.Order) {
		o.Type = domain.OrderTypeStopLimit
		o.StopPrice = stop
		o.LimitCap = limit
	}
}

// WithStopLoss attaches a stop-loss to the position the order opens.
func WithStopLoss(price float64) OrderOption {
	return func(o *domain.Order) {
		o.StopLoss = price
	}
}

// WithTakeProfit attaches a take-profit to the position the order opens.
func WithTakeProfit(price float64) OrderOption {
	return func(o *domain.Order) {
		o.TakeProfit = price
	}
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View is the read-only window a strategy receives each bar: history up to
// and including the current index, the account state, and order-creation
// operations. A View is only valid for the duration of the OnBar call that
// received it.
type View struct {
	r *run
}

// Index returns the current bar index.
func (v *View) Index() int { return v.r.idx }

// Time returns the timestamp of the current bar.
func (v *View) Time() time.Time { return v.r.timestamps[v.r.idx] }

// Symbols returns the symbols participating in this run, sorted.
func (v *View) Symbols() []string { return v.r.symbols }

// Bar returns the current bar for symbol. The second return value is false
// when the symbol is not part of the run.
func (v *View) Bar(symbol string) (domain.Bar, bool) {
	bars, ok := v.r.data[symbol]
	if !ok {
		return domain.Bar{}, false
	}
	return bars[v.r.idx], true
}

// Closes returns the close series for symbol up to and including the current
// bar. The slice is shared with the engine and must not be modified.
func (v *View) Closes(symbol string) []float64 { return v.series(v.r.closes, symbol) }

// Highs returns the high series for symbol up to and including the current bar.
func (v *View) Highs(symbol string) []float64 { return v.series(v.r.highs, symbol) }

// Lows returns the low series for symbol up to and including the current bar.
func (v *View) Lows(symbol string) []float64 { return v.series(v.r.lows, symbol) }

// Volumes returns the volume series for symbol up to and including the
// current bar.
func (v *View) Volumes(symbol string) []float64 { return v.series(v.r.volumes, symbol) }

func (v *View) series(m map[string][]float64, symbol string) []float64 {
	s, ok := m[symbol]
	if !ok {
		return nil
	}
	return s[:v.r.idx+1]
}

// Cash returns the current cash balance.
func (v *View) Cash() float64 { return v.r.cash }

// Equity returns cash plus the unrealized P&L of all open positions, marked
// at the current bar's close.
func (v *View) Equity() float64 { return v.r.equity() }

// OpenPositions returns the open positions, optionally filtered by symbol
// (empty string matches all). Strategies may adjust StopLoss/TakeProfit on
// the returned positions (e.g. trailing stops).
func (v *View) OpenPositions(symbol string) []*domain.Position {
	var out []*domain.Position
	for _, p := range v.r.positions {
		if p.Status == domain.PositionStatusOpen && (symbol == "" || p.Symbol == symbol) {
			out = append(out, p)
		}
	}
	return out
}

// PendingOrders returns the pending orders, optionally filtered by symbol.
func (v *View) PendingOrders(symbol string) []*domain.Order {
	var out []*domain.Order
	for _, w := range v.r.orders {
		if w.order.Status == domain.OrderStatusPending && (symbol == "" || w.order.Symbol == symbol) {
			out = append(out, w.order)
		}
	}
	return out
}

// Buy creates a buy order for qty units of symbol. Without options it is a
// market order that will fill on the next bar at this bar's close. The
// returned order is a live handle: the engine updates its status as the
// order fills or is cancelled.
func (v *View) Buy(symbol string, qty float64, opts ...OrderOption) (*domain.Order, error) {
	return v.r.createOrder(symbol, domain.OrderSideBuy, qty, opts)
}

// Sell creates a sell order for qty units of symbol; see Buy for execution
// semantics.
func (v *View) Sell(symbol string, qty float64, opts ...OrderOption) (*domain.Order, error) {
	return v.r.createOrder(symbol, domain.OrderSideSell, qty, opts)
}

// ClosePosition creates a market order that flattens the given position on
// the next bar. Closing an already-closed position returns nil.
func (v *View) ClosePosition(p *domain.Position) (*domain.Order, error) {
	if p.Status == domain.PositionStatusClosed {
		return nil, nil
	}
	side := domain.OrderSideSell
	if p.Direction == domain.DirectionShort {
		side = domain.OrderSideBuy
	}
	return v.r.createOrder(p.Symbol, side, p.Quantity, nil)
}

// Cancel cancels a pending order. Cancelling an order that already filled
// fails; the failure is reported to the caller and logged, and the run
// continues.
func (v *View) Cancel(o *domain.Order) error {
	if err := o.Cancel(); err != nil {
		v.r.log.Warn("order cancel rejected", "symbol", o.Symbol, "status", o.Status)
		return err
	}
	return nil
}
