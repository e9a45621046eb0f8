package us

import (
	"errors"
	"testing"
	"time"

	"tradelab/internal/domain"
)

func TestLastSettledDay(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("loading ET: %v", err)
	}
	days := []string{"2024-01-08", "2024-01-09", "2024-01-10"}

	// Before the cutoff on the 10th: yesterday is the last settled day.
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, et)
	got, err := lastSettledDay(days, now)
	if err != nil {
		t.Fatalf("lastSettledDay: %v", err)
	}
	if got.Format("2006-01-02") != "2024-01-09" {
		t.Errorf("before cutoff: got %s, want 2024-01-09", got.Format("2006-01-02"))
	}

	// After the cutoff: today counts.
	now = time.Date(2024, 1, 10, 20, 30, 0, 0, et)
	got, err = lastSettledDay(days, now)
	if err != nil {
		t.Fatalf("lastSettledDay: %v", err)
	}
	if got.Format("2006-01-02") != "2024-01-10" {
		t.Errorf("after cutoff: got %s, want 2024-01-10", got.Format("2006-01-02"))
	}

	// Weekend: today absent from the calendar, newest past day wins.
	now = time.Date(2024, 1, 13, 12, 0, 0, 0, et)
	got, err = lastSettledDay(days, now)
	if err != nil {
		t.Fatalf("lastSettledDay: %v", err)
	}
	if got.Format("2006-01-02") != "2024-01-10" {
		t.Errorf("weekend: got %s, want 2024-01-10", got.Format("2006-01-02"))
	}
}

func TestLastSettledDayEmpty(t *testing.T) {
	_, err := lastSettledDay(nil, time.Now())
	if !errors.Is(err, domain.ErrData) {
		t.Errorf("error = %v, want ErrData", err)
	}
}
