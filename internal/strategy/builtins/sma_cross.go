// Package builtins provides the strategy implementations that ship with
// tradelab. Each strategy works from the bar history exposed by its View and
// never inspects future data; all of them are registered under stable names
// via NewRegistry.
package builtins

import (
	"context"
	"fmt"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It buys
// when the short-period SMA crosses above the long-period SMA and exits when
// it crosses back below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	sizePct     float64
}

// NewSMACross creates an SMACross with the given short and long moving
// average periods. sizePct is the fraction of current equity committed to
// each entry.
func NewSMACross(short, long int, sizePct float64) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
		sizePct:     sizePct,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Init validates the configured periods.
func (s *SMACross) Init(_ context.Context) error {
	if s.shortPeriod <= 0 || s.longPeriod <= s.shortPeriod {
		return fmt.Errorf("%w: sma-cross requires 0 < short < long, got %d/%d",
			domain.ErrConfig, s.shortPeriod, s.longPeriod)
	}
	if s.sizePct <= 0 || s.sizePct > 1 {
		return fmt.Errorf("%w: sma-cross size must be in (0,1], got %v", domain.ErrConfig, s.sizePct)
	}
	return nil
}

// OnBar checks each symbol for a crossover between the short and long SMAs
// of the close series and trades the transition.
func (s *SMACross) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		if len(closes) < s.longPeriod+1 {
			continue
		}

		short := indicator.SMA(closes, s.shortPeriod)
		long := indicator.SMA(closes, s.longPeriod)
		i := len(closes) - 1
		if !indicator.Defined(short[i-1]) || !indicator.Defined(long[i-1]) {
			continue
		}

		wasAbove := short[i-1] > long[i-1]
		isAbove := short[i] > long[i]
		open := v.OpenPositions(sym)

		switch {
		case isAbove && !wasAbove && len(open) == 0:
			qty := v.Equity() * s.sizePct / closes[i]
			if qty <= 0 {
				continue
			}
			if _, err := v.Buy(sym, qty); err != nil {
				return err
			}
		case !isAbove && wasAbove:
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
