// Package us gathers US equity market data from the Alpaca market-data API.
package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradelab/internal/domain"
	"tradelab/internal/gather"
	"tradelab/internal/store"
	"tradelab/internal/util"
)

// Compile-time interface check.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// DailyBarGatherer fetches daily OHLCV bars for a configured list of symbols
// via the Alpaca market-data API and writes them to the bar store. Fetches
// are batched, rate limited, and retried on transient failures.
type DailyBarGatherer struct {
	client    *marketdata.Client
	store     store.BarStore
	symbols   []string
	batchSize int
	startDate string
	limiter   *util.RateLimiter
	apiKey    string
	apiSecret string
	baseURL   string // live trading API, used for the calendar
	log       *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials, target store, symbol list, and batch parameters.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL, baseURL string, s store.BarStore, symbols []string, batchSize, rateLimitPerMin int, startDate string) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}

	return &DailyBarGatherer{
		client:    marketdata.NewClient(opts),
		store:     s,
		symbols:   symbols,
		batchSize: batchSize,
		startDate: startDate,
		limiter:   util.NewRateLimiter(rateLimitPerMin),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		log:       slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches daily bars for the configured symbols and writes them to the
// store. Re-running merges with existing data, so it is safe to run daily.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.symbols) == 0 {
		return fmt.Errorf("%w: no symbols configured for gathering", domain.ErrConfig)
	}

	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("%w: parsing start date %q: %w", domain.ErrConfig, g.startDate, err)
	}

	end, err := LatestFinishedTradingDay(g.apiKey, g.apiSecret, g.baseURL)
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}

	g.log.Info("starting us-daily",
		"symbols", len(g.symbols),
		"start", g.startDate,
		"end", end.Format("2006-01-02"))

	runStart := time.Now()
	total := 0
	for i := 0; i < len(g.symbols); i += g.batchSize {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		hi := min(i+g.batchSize, len(g.symbols))
		batch := g.symbols[i:hi]

		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		var bars []domain.Bar
		err := util.Retry(ctx, 3, time.Second, func() error {
			var ferr error
			bars, ferr = g.fetchMultiBars(ctx, batch, start, end)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("fetching batch %v: %w", batch, err)
		}

		if len(bars) > 0 {
			if err := g.store.WriteBars(ctx, bars); err != nil {
				return fmt.Errorf("writing bars: %w", err)
			}
		}
		total += len(bars)
		g.log.Info("batch done", "symbols", len(batch), "bars", len(bars))
	}

	g.log.Info("complete",
		"bars", total,
		"elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (g *DailyBarGatherer) fetchMultiBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    float64(ab.Volume),
			})
		}
	}
	return bars, nil
}
