package strategy

import (
	"math"
	"testing"
	"time"

	"tradelab/internal/domain"
)

func curveFrom(equities ...float64) []domain.EquityPoint {
	pts := make([]domain.EquityPoint, len(equities))
	for i, e := range equities {
		pts[i] = domain.EquityPoint{
			Timestamp: testEpoch.AddDate(0, 0, i),
			Equity:    e,
		}
	}
	return pts
}

func TestAnalyzeEmptyCurve(t *testing.T) {
	m := Analyze(nil, nil)
	if m != (Metrics{}) {
		t.Errorf("Analyze(nil, nil) = %+v, want zero metrics", m)
	}
}

func TestAnalyzeTotalReturn(t *testing.T) {
	m := Analyze(curveFrom(100, 105, 110), nil)
	if !near(m.TotalReturn, 0.10) {
		t.Errorf("TotalReturn = %v, want 0.10", m.TotalReturn)
	}
}

func TestAnalyzeMaxDrawdown(t *testing.T) {
	// Peak 110, trough 90: drawdown 1 - 90/110.
	m := Analyze(curveFrom(100, 110, 90, 95), nil)
	want := 1 - 90.0/110.0
	if !near(m.MaxDrawdown, want) {
		t.Errorf("MaxDrawdown = %v, want %v", m.MaxDrawdown, want)
	}
}

func TestAnalyzeMaxDrawdownMonotonic(t *testing.T) {
	m := Analyze(curveFrom(100, 101, 102, 103), nil)
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0 for a rising curve", m.MaxDrawdown)
	}
}

func TestAnalyzeSharpeZeroVolatility(t *testing.T) {
	m := Analyze(curveFrom(100, 100, 100, 100), nil)
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 for constant equity", m.SharpeRatio)
	}
}

func TestAnalyzeSharpeTooFewPoints(t *testing.T) {
	m := Analyze(curveFrom(100, 105), nil)
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 with a single return", m.SharpeRatio)
	}
}

func TestAnalyzeSharpeSign(t *testing.T) {
	up := Analyze(curveFrom(100, 102, 103, 106, 107), nil)
	if up.SharpeRatio <= 0 {
		t.Errorf("SharpeRatio = %v, want positive for an uptrending curve", up.SharpeRatio)
	}
	down := Analyze(curveFrom(100, 98, 97, 94, 93), nil)
	if down.SharpeRatio >= 0 {
		t.Errorf("SharpeRatio = %v, want negative for a downtrending curve", down.SharpeRatio)
	}
}

func TestAnalyzeTradeStats(t *testing.T) {
	trades := []domain.Trade{
		{PnL: 100},
		{PnL: 50},
		{PnL: -75},
		{PnL: 0},
	}
	m := Analyze(curveFrom(100, 101), trades)
	if !near(m.WinRate, 0.5) {
		t.Errorf("WinRate = %v, want 0.5", m.WinRate)
	}
	if !near(m.ProfitFactor, 2.0) {
		t.Errorf("ProfitFactor = %v, want 2.0", m.ProfitFactor)
	}
}

func TestAnalyzeProfitFactorNoLosers(t *testing.T) {
	m := Analyze(curveFrom(100, 110), []domain.Trade{{PnL: 10}})
	if m.ProfitFactor != math.MaxFloat64 {
		t.Errorf("ProfitFactor = %v, want MaxFloat64 cap", m.ProfitFactor)
	}
}

func TestAnalyzeProfitFactorNoWinners(t *testing.T) {
	m := Analyze(curveFrom(100, 90), []domain.Trade{{PnL: -10}})
	if m.ProfitFactor != 0 {
		t.Errorf("ProfitFactor = %v, want 0", m.ProfitFactor)
	}
	if m.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", m.WinRate)
	}
}

func TestAnnualize(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// A 10% return over exactly one year stays 10%.
	got := annualize(0.10, start, start.AddDate(0, 0, 365))
	if !near(got, 0.10) {
		t.Errorf("annualize over 365d = %v, want 0.10", got)
	}

	// Half a year compounds up: (1.1)^2 - 1.
	got = annualize(0.10, start, start.AddDate(0, 0, 182))
	want := math.Pow(1.10, 365.0/182.0) - 1
	if !near(got, want) {
		t.Errorf("annualize over 182d = %v, want %v", got, want)
	}

	// Sub-day spans are clamped to one elapsed day before compounding.
	got = annualize(0.10, start, start.Add(6*time.Hour))
	want = math.Pow(1.10, 365) - 1
	if !near(got, want) {
		t.Errorf("annualize over 6h = %v, want one-day clamp %v", got, want)
	}

	// Total loss floors at -1.
	got = annualize(-1, start, start.AddDate(0, 0, 100))
	if got != -1 {
		t.Errorf("annualize of -100%% = %v, want -1", got)
	}
}
