package builtins

import "tradelab/internal/strategy"

// NewRegistry returns a registry populated with every built-in strategy at
// its default parameters. Callers that want different parameters register
// their own instances instead.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register(NewSMACross(10, 30, 0.95))
	r.Register(NewRSIReversal(14, 30, 70, 0.95, 0.05))
	r.Register(NewBollingerBounce(20, 2, 0.95))
	r.Register(NewTrendFollow(14, 25, 14, 1.5, 0.02, 0.05))
	r.Register(NewMeanReversion(20, 2, 0.5, 0.95))
	r.Register(NewBreakout(20, 1.5, 0.5, 14, 1.5, 0.02))
	return r
}
