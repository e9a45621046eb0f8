package builtins

import (
	"context"
	"fmt"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

var _ strategy.Strategy = (*RSIReversal)(nil)

// RSIReversal buys when the RSI falls below the oversold threshold and exits
// when it rises above the overbought threshold. Entries carry a fixed
// percentage stop-loss.
type RSIReversal struct {
	period     int
	oversold   float64
	overbought float64
	sizePct    float64
	stopPct    float64
}

// NewRSIReversal creates an RSIReversal. Typical values are period 14,
// oversold 30, overbought 70.
func NewRSIReversal(period int, oversold, overbought, sizePct, stopPct float64) *RSIReversal {
	return &RSIReversal{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
		sizePct:    sizePct,
		stopPct:    stopPct,
	}
}

// Name returns "rsi-reversal".
func (s *RSIReversal) Name() string {
	return "rsi-reversal"
}

// Init validates the thresholds.
func (s *RSIReversal) Init(_ context.Context) error {
	if s.period <= 0 {
		return fmt.Errorf("%w: rsi-reversal period must be positive, got %d", domain.ErrConfig, s.period)
	}
	if s.oversold >= s.overbought || s.oversold < 0 || s.overbought > 100 {
		return fmt.Errorf("%w: rsi-reversal thresholds must satisfy 0 <= oversold < overbought <= 100, got %v/%v",
			domain.ErrConfig, s.oversold, s.overbought)
	}
	if s.sizePct <= 0 || s.sizePct > 1 {
		return fmt.Errorf("%w: rsi-reversal size must be in (0,1], got %v", domain.ErrConfig, s.sizePct)
	}
	return nil
}

// OnBar evaluates RSI threshold crossings for every symbol.
func (s *RSIReversal) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		rsi := indicator.RSI(closes, s.period)
		i := len(closes) - 1
		if i < 0 || !indicator.Defined(rsi[i]) {
			continue
		}

		open := v.OpenPositions(sym)
		switch {
		case rsi[i] < s.oversold && len(open) == 0:
			price := closes[i]
			qty := v.Equity() * s.sizePct / price
			if qty <= 0 {
				continue
			}
			opts := []strategy.OrderOption{}
			if s.stopPct > 0 {
				opts = append(opts, strategy.WithStopLoss(price*(1-s.stopPct)))
			}
			if _, err := v.Buy(sym, qty, opts...); err != nil {
				return err
			}
		case rsi[i] > s.overbought:
			for _, p := range open {
				if p.Direction != domain.DirectionLong {
					continue
				}
				if _, err := v.ClosePosition(p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
