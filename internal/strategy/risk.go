package strategy

import "tradelab/internal/domain"

// PositionSize returns the quantity whose loss, if price moves from entry to
// stop, equals riskFraction of equity. It returns 0 when the inputs cannot
// produce a meaningful size (non-positive equity, zero stop distance).
func PositionSize(equity, riskFraction, entry, stop float64) float64 {
	if equity <= 0 || riskFraction <= 0 {
		return 0
	}
	dist := entry - stop
	if dist < 0 {
		dist = -dist
	}
	if dist == 0 {
		return 0
	}
	return equity * riskFraction / dist
}

// TrailStop ratchets a protective stop behind the current price by trailPct.
// For a long position the stop only moves up; for a short only down. The
// returned value is the new stop, which equals current when no improvement
// is possible.
func TrailStop(current, price, trailPct float64, dir domain.Direction) float64 {
	if trailPct <= 0 || price <= 0 {
		return current
	}
	if dir == domain.DirectionLong {
		candidate := price * (1 - trailPct)
		if candidate > current {
			return candidate
		}
		return current
	}
	candidate := price * (1 + trailPct)
	if current == 0 || candidate < current {
		return candidate
	}
	return current
}
