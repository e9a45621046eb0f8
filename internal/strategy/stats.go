package strategy

import (
	"math"
	"time"

	"tradelab/internal/domain"
)

// Metrics summarises the outcome of a backtest: return and risk figures
// derived from the equity curve plus trade-level statistics from the closed
// trade ledger.
type Metrics struct {
	TotalReturn  float64
	AnnualReturn float64
	MaxDrawdown  float64
	SharpeRatio  float64
	WinRate      float64
	ProfitFactor float64
}

// Analyze computes summary metrics from an equity curve and a closed-trade
// ledger. An empty curve yields zero metrics. ProfitFactor is capped at
// math.MaxFloat64 when there are winners but no losers, keeping the value
// JSON-encodable.
func Analyze(curve []domain.EquityPoint, trades []domain.Trade) Metrics {
	var m Metrics
	if len(curve) == 0 {
		return m
	}

	first := curve[0].Equity
	last := curve[len(curve)-1].Equity
	if first != 0 {
		m.TotalReturn = last/first - 1
	}
	m.AnnualReturn = annualize(m.TotalReturn, curve[0].Timestamp, curve[len(curve)-1].Timestamp)
	m.MaxDrawdown = maxDrawdown(curve)
	m.SharpeRatio = sharpe(curve)
	m.WinRate, m.ProfitFactor = tradeStats(trades)
	return m
}

// annualize converts a total return over [start, end] into a compound annual
// rate, with the elapsed span clamped to at least one calendar day.
func annualize(totalReturn float64, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	base := 1 + totalReturn
	if base <= 0 {
		return -1
	}
	return math.Pow(base, 365/days) - 1
}

// maxDrawdown returns the largest peak-to-trough decline as a positive
// fraction of the peak.
func maxDrawdown(curve []domain.EquityPoint) float64 {
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe computes the annualized Sharpe ratio of the per-bar equity returns,
// assuming daily bars (252 trading days) and a zero risk-free rate. Fewer
// than two returns, or zero volatility, yields zero.
func sharpe(curve []domain.EquityPoint) float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, curve[i].Equity/prev-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	sd := math.Sqrt(variance)
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(252)
}

// tradeStats returns the fraction of strictly profitable trades and the
// ratio of gross profits to gross losses.
func tradeStats(trades []domain.Trade) (winRate, profitFactor float64) {
	if len(trades) == 0 {
		return 0, 0
	}

	var wins int
	var grossProfit, grossLoss float64
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			grossLoss += -t.PnL
		}
	}

	winRate = float64(wins) / float64(len(trades))
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		profitFactor = math.MaxFloat64
	default:
		profitFactor = 0
	}
	return winRate, profitFactor
}
