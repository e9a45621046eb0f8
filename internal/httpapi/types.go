// Package httpapi provides an HTTP REST API for running backtests and
// browsing stored results in JSON format.
package httpapi

import (
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/store"
)

// RunRequest is the JSON body for starting a backtest.
type RunRequest struct {
	Strategy       string   `json:"strategy"`
	Symbols        []string `json:"symbols"`
	Start          string   `json:"start"` // YYYY-MM-DD
	End            string   `json:"end"`   // YYYY-MM-DD
	InitialCapital float64  `json:"initialCapital,omitempty"`
	CommissionRate *float64 `json:"commissionRate,omitempty"`
}

// TradeJSON is the JSON representation of a closed trade.
type TradeJSON struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Quantity   float64 `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
	EntryTime  string  `json:"entryTime"`
	ExitPrice  float64 `json:"exitPrice"`
	ExitTime   string  `json:"exitTime"`
	PnL        float64 `json:"pnl"`
	PnLPct     float64 `json:"pnlPct"`
	Commission float64 `json:"commission"`
}

// EquityPointJSON is a single equity curve sample.
type EquityPointJSON struct {
	Time   string  `json:"time"`
	Equity float64 `json:"equity"`
}

// ResultJSON is the JSON representation of a stored backtest result. Trades
// and the equity curve are populated only for single-result responses.
type ResultJSON struct {
	ID             int64    `json:"id"`
	Strategy       string   `json:"strategy"`
	Symbols        []string `json:"symbols"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	InitialCapital float64  `json:"initialCapital"`
	FinalEquity    float64  `json:"finalEquity"`
	TotalReturn    float64  `json:"totalReturn"`
	AnnualReturn   float64  `json:"annualReturn"`
	MaxDrawdown    float64  `json:"maxDrawdown"`
	SharpeRatio    float64  `json:"sharpeRatio"`
	WinRate        float64  `json:"winRate"`
	ProfitFactor   float64  `json:"profitFactor"`
	TotalTrades    int      `json:"totalTrades"`
	CreatedAt      string   `json:"createdAt"`

	Trades      []TradeJSON       `json:"trades,omitempty"`
	EquityCurve []EquityPointJSON `json:"equityCurve,omitempty"`
}

// ResultsResponse lists stored result summaries.
type ResultsResponse struct {
	Results []ResultJSON `json:"results"`
}

// StrategiesResponse lists the registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

// SymbolsResponse lists symbols with bar data available.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

func convertTrade(t domain.Trade) TradeJSON {
	return TradeJSON{
		Symbol:     t.Symbol,
		Direction:  string(t.Direction),
		Quantity:   t.Quantity,
		EntryPrice: t.EntryPrice,
		EntryTime:  t.EntryTime.UTC().Format(time.RFC3339),
		ExitPrice:  t.ExitPrice,
		ExitTime:   t.ExitTime.UTC().Format(time.RFC3339),
		PnL:        t.PnL,
		PnLPct:     t.PnLPct,
		Commission: t.Commission,
	}
}

// convertRecord converts a stored record to JSON. When full is false the
// trades and equity curve are omitted.
func convertRecord(rec *store.BacktestRecord, full bool) ResultJSON {
	out := ResultJSON{
		ID:             rec.ID,
		Strategy:       rec.Strategy,
		Symbols:        rec.Symbols,
		Start:          rec.Start.UTC().Format("2006-01-02"),
		End:            rec.End.UTC().Format("2006-01-02"),
		InitialCapital: rec.InitialCapital,
		FinalEquity:    rec.FinalEquity,
		TotalReturn:    rec.TotalReturn,
		AnnualReturn:   rec.AnnualReturn,
		MaxDrawdown:    rec.MaxDrawdown,
		SharpeRatio:    rec.SharpeRatio,
		WinRate:        rec.WinRate,
		ProfitFactor:   rec.ProfitFactor,
		TotalTrades:    rec.TotalTrades,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !full {
		return out
	}

	out.Trades = make([]TradeJSON, 0, len(rec.Trades))
	for _, t := range rec.Trades {
		out.Trades = append(out.Trades, convertTrade(t))
	}
	out.EquityCurve = make([]EquityPointJSON, 0, len(rec.EquityCurve))
	for _, p := range rec.EquityCurve {
		out.EquityCurve = append(out.EquityCurve, EquityPointJSON{
			Time:   p.Timestamp.UTC().Format(time.RFC3339),
			Equity: p.Equity,
		})
	}
	return out
}
