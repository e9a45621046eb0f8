package builtins

import (
	"context"
	"fmt"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

var _ strategy.Strategy = (*TrendFollow)(nil)

// TrendFollow enters in the direction of an established trend: ADX above the
// threshold confirms the trend is strong, the MACD line relative to its
// signal line picks the side. Entries are sized so the ATR-multiple stop
// risks a fixed fraction of equity, and the stop trails the close while the
// position is open.
type TrendFollow struct {
	adxPeriod    int
	adxThreshold float64
	atrPeriod    int
	stopATR      float64
	riskPerTrade float64
	trailPct     float64
}

// NewTrendFollow creates a TrendFollow with the standard MACD (12/26/9).
func NewTrendFollow(adxPeriod int, adxThreshold float64, atrPeriod int, stopATR, riskPerTrade, trailPct float64) *TrendFollow {
	return &TrendFollow{
		adxPeriod:    adxPeriod,
		adxThreshold: adxThreshold,
		atrPeriod:    atrPeriod,
		stopATR:      stopATR,
		riskPerTrade: riskPerTrade,
		trailPct:     trailPct,
	}
}

// Name returns "trend-follow".
func (s *TrendFollow) Name() string {
	return "trend-follow"
}

// Init validates the risk parameters.
func (s *TrendFollow) Init(_ context.Context) error {
	if s.adxPeriod <= 0 || s.atrPeriod <= 0 {
		return fmt.Errorf("%w: trend-follow periods must be positive, got adx=%d atr=%d",
			domain.ErrConfig, s.adxPeriod, s.atrPeriod)
	}
	if s.stopATR <= 0 {
		return fmt.Errorf("%w: trend-follow stop multiple must be positive, got %v", domain.ErrConfig, s.stopATR)
	}
	if s.riskPerTrade <= 0 || s.riskPerTrade > 0.1 {
		return fmt.Errorf("%w: trend-follow risk per trade must be in (0,0.1], got %v",
			domain.ErrConfig, s.riskPerTrade)
	}
	return nil
}

// OnBar trails stops on open positions and looks for fresh trend entries.
func (s *TrendFollow) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		highs := v.Highs(sym)
		lows := v.Lows(sym)
		i := len(closes) - 1
		if i < 0 {
			continue
		}

		// Trail stops first so an exit this bar is not measured from a
		// stale level.
		for _, p := range v.OpenPositions(sym) {
			if s.trailPct > 0 && p.StopLoss > 0 {
				p.StopLoss = strategy.TrailStop(p.StopLoss, closes[i], s.trailPct, p.Direction)
			}
		}

		adx := indicator.ADX(highs, lows, closes, s.adxPeriod)
		macd := indicator.MACD(closes, 12, 26, 9)
		atr := indicator.ATR(highs, lows, closes, s.atrPeriod)
		if !indicator.Defined(adx.ADX[i]) || !indicator.Defined(macd.Signal[i]) || !indicator.Defined(atr[i]) {
			continue
		}
		if adx.ADX[i] < s.adxThreshold || len(v.OpenPositions(sym)) > 0 {
			continue
		}

		price := closes[i]
		stopDist := atr[i] * s.stopATR
		if stopDist <= 0 {
			continue
		}

		if macd.Line[i] > macd.Signal[i] && adx.PlusDI[i] > adx.MinusDI[i] {
			stop := price - stopDist
			qty := strategy.PositionSize(v.Equity(), s.riskPerTrade, price, stop)
			if qty <= 0 {
				continue
			}
			if _, err := v.Buy(sym, qty, strategy.WithStopLoss(stop)); err != nil {
				return err
			}
		} else if macd.Line[i] < macd.Signal[i] && adx.MinusDI[i] > adx.PlusDI[i] {
			stop := price + stopDist
			qty := strategy.PositionSize(v.Equity(), s.riskPerTrade, price, stop)
			if qty <= 0 {
				continue
			}
			if _, err := v.Sell(sym, qty, strategy.WithStopLoss(stop)); err != nil {
				return err
			}
		}
	}
	return nil
}
