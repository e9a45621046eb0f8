package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/store"
)

// BacktestResult holds everything a finished run exposes to reporting
// collaborators: the equity curve, the closed-trade ledger, and the summary
// metrics derived from them.
type BacktestResult struct {
	Strategy       string
	Symbols        []string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalEquity    float64

	TotalReturn  float64
	AnnualReturn float64
	MaxDrawdown  float64
	SharpeRatio  float64
	WinRate      float64
	ProfitFactor float64
	TotalTrades  int

	EquityCurve []domain.EquityPoint
	Trades      []domain.Trade
}

// Record converts the result into its persisted form.
func (r *BacktestResult) Record() *store.BacktestRecord {
	return &store.BacktestRecord{
		Strategy:       r.Strategy,
		Symbols:        r.Symbols,
		Start:          r.Start,
		End:            r.End,
		InitialCapital: r.InitialCapital,
		FinalEquity:    r.FinalEquity,
		TotalReturn:    r.TotalReturn,
		AnnualReturn:   r.AnnualReturn,
		MaxDrawdown:    r.MaxDrawdown,
		SharpeRatio:    r.SharpeRatio,
		WinRate:        r.WinRate,
		ProfitFactor:   r.ProfitFactor,
		TotalTrades:    r.TotalTrades,
		Trades:         r.Trades,
		EquityCurve:    r.EquityCurve,
	}
}

// Backtester replays historical bar data through a strategy and computes
// performance metrics. It reads bars from a store and looks up strategies in
// a registry; the simulation itself is a sequential fold over the bar
// sequence, so independent runs may execute in parallel as long as each uses
// its own Strategy instance.
type Backtester struct {
	store      store.BarStore
	registry   *Registry
	market     string
	commission float64
	log        *slog.Logger
}

// NewBacktester creates a Backtester that reads bars for the given market
// from the store, looks up strategies in the registry, and charges commission
// as a fraction of notional (0.001 = 0.1%) on every fill.
func NewBacktester(barStore store.BarStore, registry *Registry, market string, commission float64) *Backtester {
	return &Backtester{
		store:      barStore,
		registry:   registry,
		market:     market,
		commission: commission,
		log:        slog.Default().With("component", "backtester"),
	}
}

// Run executes a backtest for the named strategy over the specified symbols
// and date range, starting with initialCapital.
func (bt *Backtester) Run(
	ctx context.Context,
	name string,
	symbols []string,
	start, end time.Time,
	initialCapital float64,
) (*BacktestResult, error) {
	s, ok := bt.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrConfig, name)
	}

	data := make(map[string][]domain.Bar, len(symbols))
	for _, sym := range symbols {
		bars, err := bt.store.ReadBars(ctx, sym, bt.market, start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: no bars for %s in [%s, %s]",
				domain.ErrData, sym, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		data[sym] = bars
	}

	bt.log.Info("starting backtest",
		"strategy", name, "symbols", symbols,
		"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"),
		"initialCapital", initialCapital)

	res, err := RunSeries(ctx, s, data, initialCapital, bt.commission)
	if err != nil {
		return nil, err
	}

	bt.log.Info("backtest finished",
		"strategy", name, "finalEquity", res.FinalEquity,
		"totalReturn", res.TotalReturn, "trades", res.TotalTrades)
	return res, nil
}

// RunSeries executes a backtest of s over the given per-symbol bar series.
// All symbols must share an identical timestamp index; misalignment is a
// caller error. Commission is charged as a fraction of notional on every
// fill, including forced exits.
//
// The per-bar order is fixed: stop-loss/take-profit triggers are evaluated
// first and pre-empt any same-bar signal, then pending orders fill, then the
// strategy is invoked, then the equity curve is appended. Any remaining open
// positions are force-closed at the final bar's close so the metrics reflect
// realized outcomes.
func RunSeries(
	ctx context.Context,
	s Strategy,
	data map[string][]domain.Bar,
	initialCapital float64,
	commission float64,
) (*BacktestResult, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("%w: initial capital must be positive, got %v", domain.ErrConfig, initialCapital)
	}
	if commission < 0 || commission >= 1 {
		return nil, fmt.Errorf("%w: commission must be in [0,1), got %v", domain.ErrConfig, commission)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no bar data", domain.ErrData)
	}

	r, err := newRun(s, data, initialCapital, commission)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("%w: init: %w", domain.ErrStrategy, err)
	}
	return r.execute(ctx)
}

// ---------------------------------------------------------------------------
// Run state
// ---------------------------------------------------------------------------

// pendingOrder pairs an order with the context of its creation. Orders become
// eligible for execution on the bar after createdIdx; market orders fill at
// the close of the bar they were created on, the price the strategy saw when
// it decided.
type pendingOrder struct {
	order      *domain.Order
	createdIdx int
	refClose   float64
}

// run owns the mutable state of one backtest: cash, positions, orders,
// equity curve. A run is never shared and never reused.
type run struct {
	strategy   Strategy
	data       map[string][]domain.Bar
	symbols    []string
	timestamps []time.Time

	closes  map[string][]float64
	highs   map[string][]float64
	lows    map[string][]float64
	volumes map[string][]float64

	capital    float64
	cash       float64
	commission float64
	positions  []*domain.Position
	orders     []*pendingOrder
	trades     []domain.Trade
	curve      []domain.EquityPoint
	idx        int

	log *slog.Logger
}

func newRun(s Strategy, data map[string][]domain.Bar, initialCapital, commission float64) (*run, error) {
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	// Validate each series, then cross-symbol timestamp alignment.
	ref := data[symbols[0]]
	for _, sym := range symbols {
		bars := data[sym]
		if err := domain.ValidateSeries(bars); err != nil {
			return nil, err
		}
		if len(bars) != len(ref) {
			return nil, fmt.Errorf("%w: %s has %d bars, %s has %d",
				domain.ErrData, sym, len(bars), symbols[0], len(ref))
		}
		for i := range bars {
			if !bars[i].Timestamp.Equal(ref[i].Timestamp) {
				return nil, fmt.Errorf("%w: %s misaligned with %s at index %d",
					domain.ErrData, sym, symbols[0], i)
			}
		}
	}

	timestamps := make([]time.Time, len(ref))
	for i, b := range ref {
		timestamps[i] = b.Timestamp
	}

	r := &run{
		strategy:   s,
		data:       data,
		symbols:    symbols,
		timestamps: timestamps,
		closes:     make(map[string][]float64, len(symbols)),
		highs:      make(map[string][]float64, len(symbols)),
		lows:       make(map[string][]float64, len(symbols)),
		volumes:    make(map[string][]float64, len(symbols)),
		capital:    initialCapital,
		cash:       initialCapital,
		commission: commission,
		log:        slog.Default().With("component", "backtester", "strategy", s.Name()),
	}
	for _, sym := range symbols {
		bars := data[sym]
		closes := make([]float64, len(bars))
		highs := make([]float64, len(bars))
		lows := make([]float64, len(bars))
		volumes := make([]float64, len(bars))
		for i, b := range bars {
			closes[i] = b.Close
			highs[i] = b.High
			lows[i] = b.Low
			volumes[i] = b.Volume
		}
		r.closes[sym] = closes
		r.highs[sym] = highs
		r.lows[sym] = lows
		r.volumes[sym] = volumes
	}
	return r, nil
}

// execute drives the simulation forward one bar at a time and assembles the
// result. On a strategy error the partial state is discarded.
func (r *run) execute(ctx context.Context) (*BacktestResult, error) {
	view := &View{r: r}
	n := len(r.timestamps)

	for r.idx = 0; r.idx < n; r.idx++ {
		// 1. Risk triggers pre-empt everything else this bar.
		r.applyRiskTriggers()

		// 2. Fill orders created on earlier bars.
		r.fillOrders()

		// 3. Strategy decision; its orders wait until the next bar.
		if err := r.strategy.OnBar(ctx, view); err != nil {
			return nil, fmt.Errorf("%w: bar %d (%s): %w",
				domain.ErrStrategy, r.idx, r.timestamps[r.idx].Format("2006-01-02"), err)
		}

		// 4. Mark to market.
		r.curve = append(r.curve, domain.EquityPoint{
			Timestamp: r.timestamps[r.idx],
			Equity:    r.equity(),
		})
	}

	r.closeAll()

	m := Analyze(r.curve, r.trades)

	return &BacktestResult{
		Strategy:       r.strategy.Name(),
		Symbols:        r.symbols,
		Start:          r.timestamps[0],
		End:            r.timestamps[n-1],
		InitialCapital: r.capital,
		FinalEquity:    r.curve[len(r.curve)-1].Equity,
		TotalReturn:    m.TotalReturn,
		AnnualReturn:   m.AnnualReturn,
		MaxDrawdown:    m.MaxDrawdown,
		SharpeRatio:    m.SharpeRatio,
		WinRate:        m.WinRate,
		ProfitFactor:   m.ProfitFactor,
		TotalTrades:    len(r.trades),
		EquityCurve:    r.curve,
		Trades:         r.trades,
	}, nil
}

// applyRiskTriggers force-closes positions whose stop-loss or take-profit
// was reached by the current bar, at the trigger price. The stop-loss wins
// when both bounds fall inside one bar.
func (r *run) applyRiskTriggers() {
	for _, p := range r.positions {
		if p.Status != domain.PositionStatusOpen {
			continue
		}
		bar := r.data[p.Symbol][r.idx]
		if price, ok := p.StopTriggered(bar); ok {
			r.forceClose(p, price, bar.Timestamp, "stop_loss")
			continue
		}
		if price, ok := p.TakeProfitTriggered(bar); ok {
			r.forceClose(p, price, bar.Timestamp, "take_profit")
		}
	}
}

// fillOrders evaluates every pending order created before the current bar
// and fills the executable ones.
func (r *run) fillOrders() {
	for _, w := range r.orders {
		o := w.order
		if o.Status != domain.OrderStatusPending || w.createdIdx >= r.idx {
			continue
		}
		bar := r.data[o.Symbol][r.idx]

		price, exec := o.Executable(bar)
		if !exec {
			continue
		}
		// Market orders carry the decision price: the close of the bar the
		// strategy created them on.
		if o.Type == domain.OrderTypeMarket {
			price = w.refClose
		}
		if err := o.Fill(price, bar.Timestamp); err != nil {
			continue
		}
		r.applyFill(o, price, bar.Timestamp)
	}
}

// applyFill charges commission and nets the fill against open exposure:
// an opposing fill closes open positions front-to-back, and any remainder
// opens a new position in the order's direction.
func (r *run) applyFill(o *domain.Order, price float64, ts time.Time) {
	fee := price * o.Quantity * r.commission
	r.cash -= fee
	feePerUnit := fee / o.Quantity

	dir := domain.DirectionLong
	opposite := domain.DirectionShort
	if o.Side == domain.OrderSideSell {
		dir, opposite = domain.DirectionShort, domain.DirectionLong
	}

	remaining := o.Quantity
	for _, p := range r.positions {
		if remaining <= 0 {
			break
		}
		if p.Status != domain.PositionStatusOpen || p.Symbol != o.Symbol || p.Direction != opposite {
			continue
		}
		if p.Quantity <= remaining {
			remaining -= p.Quantity
			r.closePosition(p, price, ts, feePerUnit*p.Quantity)
		} else {
			// Partial close: split the position, realize the filled part.
			// The original entry fee is prorated across the split.
			part := *p
			part.Quantity = remaining
			part.EntryFee = p.EntryFee * remaining / p.Quantity
			p.EntryFee -= part.EntryFee
			p.Quantity -= remaining
			pnl, _ := part.Close(price, ts)
			r.cash += pnl
			r.recordTrade(&part, feePerUnit*remaining)
			remaining = 0
		}
	}

	if remaining > 0 {
		p, err := domain.NewPosition(o.Symbol, dir, price, ts, remaining)
		if err != nil {
			// Quantity was validated at order creation; nothing sane to do.
			r.log.Error("opening position from fill", "error", err)
			return
		}
		p.EntryFee = feePerUnit * remaining
		if err := p.SetBounds(o.StopLoss, o.TakeProfit); err != nil {
			r.log.Warn("dropping invalid protective bounds", "symbol", o.Symbol, "error", err)
		}
		r.positions = append(r.positions, p)
	}
}

// closePosition realizes a position at price, credits the P&L to cash, and
// records the ledger entry with the given exit-side fee.
func (r *run) closePosition(p *domain.Position, price float64, ts time.Time, exitFee float64) {
	pnl, err := p.Close(price, ts)
	if err != nil {
		return
	}
	r.cash += pnl
	r.recordTrade(p, exitFee)
}

// forceClose exits a position outside the order path (risk trigger or end of
// run), charging commission on the exit notional.
func (r *run) forceClose(p *domain.Position, price float64, ts time.Time, reason string) {
	fee := price * p.Quantity * r.commission
	r.cash -= fee
	r.closePosition(p, price, ts, fee)
	r.log.Debug("position force-closed",
		"symbol", p.Symbol, "reason", reason, "price", price, "pnl", p.PnL)
}

// closeAll force-closes every remaining open position at the last bar's
// close, so final equity and trade statistics reflect realized outcomes.
func (r *run) closeAll() {
	last := len(r.timestamps) - 1
	for _, p := range r.positions {
		if p.Status != domain.PositionStatusOpen {
			continue
		}
		bar := r.data[p.Symbol][last]
		r.forceClose(p, bar.Close, bar.Timestamp, "end_of_run")
	}
	if len(r.curve) > 0 {
		// The final point reflects the realized exits.
		r.curve[len(r.curve)-1].Equity = r.equity()
	}
}

func (r *run) recordTrade(p *domain.Position, exitFee float64) {
	notional := p.EntryPrice * p.Quantity
	pct := 0.0
	if notional != 0 {
		pct = p.PnL / notional
	}
	r.trades = append(r.trades, domain.Trade{
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Quantity:   p.Quantity,
		EntryPrice: p.EntryPrice,
		EntryTime:  p.EntryTime,
		ExitPrice:  p.ExitPrice,
		ExitTime:   p.ExitTime,
		PnL:        p.PnL,
		PnLPct:     pct,
		Commission: p.EntryFee + exitFee,
	})
}

func (r *run) createOrder(symbol string, side domain.OrderSide, qty float64, opts []OrderOption) (*domain.Order, error) {
	if _, ok := r.data[symbol]; !ok {
		return nil, fmt.Errorf("%w: symbol %s not part of this run", domain.ErrConfig, symbol)
	}
	o, err := domain.NewOrder(symbol, domain.OrderTypeMarket, side, qty)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(o)
	}
	r.orders = append(r.orders, &pendingOrder{
		order:      o,
		createdIdx: r.idx,
		refClose:   r.closes[symbol][r.idx],
	})
	return o, nil
}

// equity returns cash plus the unrealized P&L of all open positions marked
// at the current bar's close.
func (r *run) equity() float64 {
	eq := r.cash
	for _, p := range r.positions {
		if p.Status == domain.PositionStatusOpen {
			eq += p.UnrealizedPnL(r.closes[p.Symbol][r.idx])
		}
	}
	return eq
}
