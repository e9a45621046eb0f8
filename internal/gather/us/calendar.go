package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tradelab/internal/domain"
)

// ET wall-clock time after which a trading day's daily bar is considered
// final (covers extended hours plus vendor settling lag).
const (
	sessionSettledHour = 20
	sessionSettledMin  = 5
)

// LatestFinishedTradingDay returns the most recent trading day whose daily
// bar has settled, looked up from the Alpaca trading calendar. Gathering up
// to this day avoids writing partial bars for a session still in progress.
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now := time.Now().In(et)

	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	calendar, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	days := make([]string, len(calendar))
	for i, d := range calendar {
		days[i] = d.Date
	}
	return lastSettledDay(days, now)
}

// lastSettledDay picks the newest calendar day that has fully settled
// relative to now. Today only counts after the settling cutoff.
func lastSettledDay(days []string, now time.Time) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("%w: no trading days returned from calendar", domain.ErrData)
	}

	today := now.Format("2006-01-02")
	cutoff := time.Date(now.Year(), now.Month(), now.Day(),
		sessionSettledHour, sessionSettledMin, 0, 0, now.Location())

	for i := len(days) - 1; i >= 0; i-- {
		day, err := time.Parse("2006-01-02", days[i])
		if err != nil {
			continue
		}
		if days[i] == today {
			if now.After(cutoff) {
				return day, nil
			}
			continue
		}
		if day.Before(now) {
			return day, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no settled trading day in calendar window", domain.ErrData)
}
