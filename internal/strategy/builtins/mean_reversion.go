package builtins

import (
	"context"
	"fmt"
	"math"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

var _ strategy.Strategy = (*MeanReversion)(nil)

// MeanReversion trades deviations from a rolling mean measured in standard
// deviations (a z-score). It buys when the close sits entryZ standard
// deviations below the mean, sells short when it sits entryZ above, and
// closes the position once the close reverts to within exitZ.
type MeanReversion struct {
	period  int
	entryZ  float64
	exitZ   float64
	sizePct float64
}

// NewMeanReversion creates a MeanReversion strategy.
func NewMeanReversion(period int, entryZ, exitZ, sizePct float64) *MeanReversion {
	return &MeanReversion{
		period:  period,
		entryZ:  entryZ,
		exitZ:   exitZ,
		sizePct: sizePct,
	}
}

// Name returns "mean-reversion".
func (s *MeanReversion) Name() string {
	return "mean-reversion"
}

// Init validates the z-score thresholds.
func (s *MeanReversion) Init(_ context.Context) error {
	if s.period <= 1 {
		return fmt.Errorf("%w: mean-reversion period must exceed 1, got %d", domain.ErrConfig, s.period)
	}
	if s.entryZ <= s.exitZ || s.exitZ < 0 {
		return fmt.Errorf("%w: mean-reversion requires 0 <= exit < entry z-score, got %v/%v",
			domain.ErrConfig, s.exitZ, s.entryZ)
	}
	if s.sizePct <= 0 || s.sizePct > 1 {
		return fmt.Errorf("%w: mean-reversion size must be in (0,1], got %v", domain.ErrConfig, s.sizePct)
	}
	return nil
}

// OnBar computes the current z-score per symbol and trades the thresholds.
func (s *MeanReversion) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		i := len(closes) - 1
		if i+1 < s.period {
			continue
		}

		// Bollinger with k=1 gives mean and one standard deviation band.
		bands := indicator.Bollinger(closes, s.period, 1)
		if !indicator.Defined(bands.Middle[i]) {
			continue
		}
		sd := bands.Upper[i] - bands.Middle[i]
		if sd == 0 || math.IsNaN(sd) {
			continue
		}
		z := (closes[i] - bands.Middle[i]) / sd

		open := v.OpenPositions(sym)
		if len(open) > 0 {
			if math.Abs(z) <= s.exitZ {
				for _, p := range open {
					if _, err := v.ClosePosition(p); err != nil {
						return err
					}
				}
			}
			continue
		}

		qty := v.Equity() * s.sizePct / closes[i]
		if qty <= 0 {
			continue
		}
		switch {
		case z <= -s.entryZ:
			if _, err := v.Buy(sym, qty); err != nil {
				return err
			}
		case z >= s.entryZ:
			if _, err := v.Sell(sym, qty); err != nil {
				return err
			}
		}
	}
	return nil
}
