package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("long"); err != nil || d != DirectionLong {
		t.Errorf("ParseDirection(long) = %v, %v", d, err)
	}
	if d, err := ParseDirection("short"); err != nil || d != DirectionShort {
		t.Errorf("ParseDirection(short) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); !errors.Is(err, ErrConfig) {
		t.Errorf("ParseDirection(sideways) error = %v, want ErrConfig", err)
	}
}

func TestBarValidate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	good := Bar{Symbol: "AAPL", Timestamp: ts, Open: 100, High: 105, Low: 95, Close: 102, Volume: 1000}
	if err := good.Validate(); err != nil {
		t.Errorf("valid bar rejected: %v", err)
	}

	badHigh := Bar{Symbol: "AAPL", Timestamp: ts, Open: 100, High: 99, Low: 95, Close: 102}
	if err := badHigh.Validate(); !errors.Is(err, ErrData) {
		t.Errorf("bar with high below close: error = %v, want ErrData", err)
	}

	badLow := Bar{Symbol: "AAPL", Timestamp: ts, Open: 100, High: 105, Low: 101, Close: 102}
	if err := badLow.Validate(); !errors.Is(err, ErrData) {
		t.Errorf("bar with low above open: error = %v, want ErrData", err)
	}
}

func TestValidateSeriesTimestamps(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []Bar{
		{Symbol: "AAPL", Timestamp: t0, Open: 100, High: 105, Low: 95, Close: 100},
		{Symbol: "AAPL", Timestamp: t0, Open: 100, High: 105, Low: 95, Close: 100},
	}
	if err := ValidateSeries(bars); !errors.Is(err, ErrData) {
		t.Errorf("duplicate timestamps: error = %v, want ErrData", err)
	}

	bars[1].Timestamp = t0.AddDate(0, 0, 1)
	if err := ValidateSeries(bars); err != nil {
		t.Errorf("increasing timestamps rejected: %v", err)
	}
}
