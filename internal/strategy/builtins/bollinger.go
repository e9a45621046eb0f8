package builtins

import (
	"context"
	"fmt"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

var _ strategy.Strategy = (*BollingerBounce)(nil)

// BollingerBounce trades mean reversion off the Bollinger bands: it buys
// when the close pierces the lower band and exits when the close returns to
// the middle band.
type BollingerBounce struct {
	period  int
	numStd  float64
	sizePct float64
}

// NewBollingerBounce creates a BollingerBounce with the given band period
// and width in standard deviations.
func NewBollingerBounce(period int, numStd, sizePct float64) *BollingerBounce {
	return &BollingerBounce{
		period:  period,
		numStd:  numStd,
		sizePct: sizePct,
	}
}

// Name returns "bollinger-bounce".
func (s *BollingerBounce) Name() string {
	return "bollinger-bounce"
}

// Init validates the band parameters.
func (s *BollingerBounce) Init(_ context.Context) error {
	if s.period <= 1 {
		return fmt.Errorf("%w: bollinger-bounce period must exceed 1, got %d", domain.ErrConfig, s.period)
	}
	if s.numStd <= 0 {
		return fmt.Errorf("%w: bollinger-bounce band width must be positive, got %v", domain.ErrConfig, s.numStd)
	}
	if s.sizePct <= 0 || s.sizePct > 1 {
		return fmt.Errorf("%w: bollinger-bounce size must be in (0,1], got %v", domain.ErrConfig, s.sizePct)
	}
	return nil
}

// OnBar checks each symbol's close against its Bollinger bands.
func (s *BollingerBounce) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		bands := indicator.Bollinger(closes, s.period, s.numStd)
		i := len(closes) - 1
		if i < 0 || !indicator.Defined(bands.Lower[i]) {
			continue
		}

		open := v.OpenPositions(sym)
		switch {
		case closes[i] < bands.Lower[i] && len(open) == 0:
			qty := v.Equity() * s.sizePct / closes[i]
			if qty <= 0 {
				continue
			}
			if _, err := v.Buy(sym, qty); err != nil {
				return err
			}
		case closes[i] >= bands.Middle[i]:
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
