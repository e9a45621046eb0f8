// Package indicator provides stateless technical-indicator computations over
// price and volume series.
//
// Every function returns a series aligned with its input: output[i] is the
// indicator value at bar i. Entries whose lookback window is incomplete are
// the explicit undefined marker (NaN) — never zero and never dropped — and
// callers must guard with Defined before using a value.
package indicator

import "math"

// Undefined returns the marker used for indicator values whose lookback
// window is incomplete.
func Undefined() float64 { return math.NaN() }

// Defined reports whether v is a usable indicator value.
func Defined(v float64) bool { return !math.IsNaN(v) }

// undefinedSeries returns a series of n undefined entries.
func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes the simple moving average of the last period values. The
// first period-1 entries are undefined.
func SMA(values []float64, period int) []float64 {
	out := undefinedSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes the exponential moving average with smoothing factor
// α = 2/(period+1), seeded at the first value. Every entry is defined.
func EMA(values []float64, period int) []float64 {
	out := undefinedSeries(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// RSI computes the relative strength index from simple rolling means of
// positive and negative price deltas over period. When the average loss is
// zero the RSI is 100. The first period entries are undefined (the delta
// series starts one bar late).
func RSI(values []float64, period int) []float64 {
	out := undefinedSeries(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(values); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		if i >= period {
			avgGain := gainSum / float64(period)
			avgLoss := lossSum / float64(period)
			if avgLoss == 0 {
				out[i] = 100
			} else {
				out[i] = 100 - 100/(1+avgGain/avgLoss)
			}
		}
	}
	return out
}

// MACDResult holds the three MACD output series.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence/divergence: the difference of
// a fast and a slow EMA, an EMA of that difference as the signal line, and
// their difference as the histogram.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	res := MACDResult{
		Line:      undefinedSeries(n),
		Signal:    undefinedSeries(n),
		Histogram: undefinedSeries(n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || n == 0 {
		return res
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	for i := 0; i < n; i++ {
		res.Line[i] = fastEMA[i] - slowEMA[i]
	}
	res.Signal = EMA(res.Line, signal)
	for i := 0; i < n; i++ {
		res.Histogram[i] = res.Line[i] - res.Signal[i]
	}
	return res
}

// BollingerResult holds the three Bollinger band series.
type BollingerResult struct {
	Middle []float64
	Upper  []float64
	Lower  []float64
}

// Bollinger computes Bollinger bands: a period-SMA middle band and
// upper/lower bands k rolling sample standard deviations (n-1 divisor) away.
// A period of 1 has no sample deviation, so the outer bands stay undefined.
func Bollinger(values []float64, period int, k float64) BollingerResult {
	n := len(values)
	res := BollingerResult{
		Middle: SMA(values, period),
		Upper:  undefinedSeries(n),
		Lower:  undefinedSeries(n),
	}
	if period <= 1 || n < period {
		return res
	}
	for i := period - 1; i < n; i++ {
		mean := res.Middle[i]
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(period-1))
		res.Upper[i] = mean + k*std
		res.Lower[i] = mean - k*std
	}
	return res
}

// TrueRange computes the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|). The first entry uses
// high-low alone since there is no previous close.
func TrueRange(high, low, closes []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-closes[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR computes the average true range as a rolling mean of the true range
// over period.
func ATR(high, low, closes []float64, period int) []float64 {
	if len(high) == 0 {
		return nil
	}
	return SMA(TrueRange(high, low, closes), period)
}

// ADXResult holds the ADX output with its directional index components.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX computes the average directional index. Directional movement counts
// only the larger, strictly positive move between the high delta and the
// (negated) low delta; ties and non-positive moves contribute zero. The
// movements are smoothed over period, normalized by ATR into +DI/−DI, and
// DX = 100·|+DI−−DI|/(+DI+−DI) (zero when the denominator is zero) is
// averaged over period again to give the ADX.
func ADX(high, low, closes []float64, period int) ADXResult {
	n := len(high)
	res := ADXResult{
		ADX:     undefinedSeries(n),
		PlusDI:  undefinedSeries(n),
		MinusDI: undefinedSeries(n),
	}
	if period <= 0 || n == 0 {
		return res
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atr := ATR(high, low, closes, period)
	plusSMA := SMA(plusDM, period)
	minusSMA := SMA(minusDM, period)

	dx := undefinedSeries(n)
	for i := 0; i < n; i++ {
		if !Defined(atr[i]) || !Defined(plusSMA[i]) || atr[i] == 0 {
			continue
		}
		res.PlusDI[i] = 100 * plusSMA[i] / atr[i]
		res.MinusDI[i] = 100 * minusSMA[i] / atr[i]
		sum := res.PlusDI[i] + res.MinusDI[i]
		if sum == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(res.PlusDI[i]-res.MinusDI[i]) / sum
		}
	}

	// Rolling mean of DX over the window where DX is defined.
	first := -1
	for i, v := range dx {
		if Defined(v) {
			first = i
			break
		}
	}
	if first < 0 {
		return res
	}
	var sum float64
	for i := first; i < n; i++ {
		sum += dx[i]
		if i-first >= period {
			sum -= dx[i-period]
		}
		if i-first >= period-1 {
			res.ADX[i] = sum / float64(period)
		}
	}
	return res
}

// StochasticResult holds the %K and %D series.
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes the stochastic oscillator:
// %K = 100·(close−lowestLow)/(highestHigh−lowestLow) over kPeriod, and %D as
// a dPeriod rolling mean of %K. A bar whose kPeriod range is zero has an
// undefined %K.
func Stochastic(high, low, closes []float64, kPeriod, dPeriod int) StochasticResult {
	n := len(closes)
	res := StochasticResult{
		K: undefinedSeries(n),
		D: undefinedSeries(n),
	}
	if kPeriod <= 0 || dPeriod <= 0 || n < kPeriod {
		return res
	}

	for i := kPeriod - 1; i < n; i++ {
		lo := low[i]
		hi := high[i]
		for j := i - kPeriod + 1; j < i; j++ {
			lo = math.Min(lo, low[j])
			hi = math.Max(hi, high[j])
		}
		if hi > lo {
			res.K[i] = 100 * (closes[i] - lo) / (hi - lo)
		}
	}

	// %D starts once dPeriod defined %K values have accumulated.
	start := kPeriod - 1 + dPeriod - 1
	for i := start; i < n; i++ {
		var sum float64
		defined := true
		for j := i - dPeriod + 1; j <= i; j++ {
			if !Defined(res.K[j]) {
				defined = false
				break
			}
			sum += res.K[j]
		}
		if defined {
			res.D[i] = sum / float64(dPeriod)
		}
	}
	return res
}
