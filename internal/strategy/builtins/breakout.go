package builtins

import (
	"context"
	"fmt"

	"tradelab/internal/domain"
	"tradelab/internal/indicator"
	"tradelab/internal/strategy"
)

var _ strategy.Strategy = (*Breakout)(nil)

// Breakout buys when the close clears the highest high of the preceding
// channel on above-average volume, after the channel has been consolidating
// (narrow relative to ATR). Entries use an ATR-multiple stop and a
// take-profit at twice the stop distance, sized by risk per trade.
type Breakout struct {
	channelPeriod int
	volumeFactor  float64
	consolidation float64
	atrPeriod     int
	stopATR       float64
	riskPerTrade  float64
}

// NewBreakout creates a Breakout strategy. Typical parameters: channel 20,
// volume factor 1.5, consolidation 0.5, ATR period 14, stop 1.5 ATR, risk
// 2% per trade.
func NewBreakout(channelPeriod int, volumeFactor, consolidation float64, atrPeriod int, stopATR, riskPerTrade float64) *Breakout {
	return &Breakout{
		channelPeriod: channelPeriod,
		volumeFactor:  volumeFactor,
		consolidation: consolidation,
		atrPeriod:     atrPeriod,
		stopATR:       stopATR,
		riskPerTrade:  riskPerTrade,
	}
}

// Name returns "breakout".
func (s *Breakout) Name() string {
	return "breakout"
}

// Init validates the channel and risk parameters.
func (s *Breakout) Init(_ context.Context) error {
	if s.channelPeriod <= 1 || s.atrPeriod <= 0 {
		return fmt.Errorf("%w: breakout periods must be positive, got channel=%d atr=%d",
			domain.ErrConfig, s.channelPeriod, s.atrPeriod)
	}
	if s.volumeFactor <= 0 || s.stopATR <= 0 {
		return fmt.Errorf("%w: breakout volume factor and stop multiple must be positive, got %v/%v",
			domain.ErrConfig, s.volumeFactor, s.stopATR)
	}
	if s.riskPerTrade <= 0 || s.riskPerTrade > 0.1 {
		return fmt.Errorf("%w: breakout risk per trade must be in (0,0.1], got %v",
			domain.ErrConfig, s.riskPerTrade)
	}
	return nil
}

// OnBar looks for a confirmed channel breakout on each symbol.
func (s *Breakout) OnBar(_ context.Context, v *strategy.View) error {
	for _, sym := range v.Symbols() {
		closes := v.Closes(sym)
		highs := v.Highs(sym)
		lows := v.Lows(sym)
		volumes := v.Volumes(sym)
		i := len(closes) - 1
		need := s.channelPeriod + 1
		if need < s.atrPeriod+1 {
			need = s.atrPeriod + 1
		}
		if i+1 < need || len(v.OpenPositions(sym)) > 0 {
			continue
		}

		// Channel over the bars preceding the current one.
		chHigh, chLow := highs[i-s.channelPeriod], lows[i-s.channelPeriod]
		var volSum float64
		for j := i - s.channelPeriod; j < i; j++ {
			if highs[j] > chHigh {
				chHigh = highs[j]
			}
			if lows[j] < chLow {
				chLow = lows[j]
			}
			volSum += volumes[j]
		}
		avgVol := volSum / float64(s.channelPeriod)

		atr := indicator.ATR(highs, lows, closes, s.atrPeriod)
		if !indicator.Defined(atr[i]) || atr[i] <= 0 {
			continue
		}

		// Consolidation filter: the channel must be narrow relative to the
		// typical bar range before a breakout counts.
		if chHigh-chLow > atr[i]*float64(s.channelPeriod)*s.consolidation {
			continue
		}
		if closes[i] <= chHigh {
			continue
		}
		if avgVol > 0 && volumes[i] < avgVol*s.volumeFactor {
			continue
		}

		price := closes[i]
		stop := price - atr[i]*s.stopATR
		target := price + 2*atr[i]*s.stopATR
		qty := strategy.PositionSize(v.Equity(), s.riskPerTrade, price, stop)
		if qty <= 0 {
			continue
		}
		_, err := v.Buy(sym, qty,
			strategy.WithStopLoss(stop),
			strategy.WithTakeProfit(target))
		if err != nil {
			return err
		}
	}
	return nil
}
