package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tradelab/internal/config"
	"tradelab/internal/store"
	"tradelab/internal/strategy"
	"tradelab/internal/strategy/builtins"
	"tradelab/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config/tradelab.yaml", "path to config file")
	name := flag.String("strategy", "", "strategy name (see -list)")
	symbolsArg := flag.String("symbols", "", "comma-separated symbols, e.g. AAPL,MSFT")
	startArg := flag.String("start", "", "start date (YYYY-MM-DD)")
	endArg := flag.String("end", "", "end date (YYYY-MM-DD), defaults to today")
	capital := flag.Float64("capital", 0, "initial capital, defaults to config value")
	commission := flag.Float64("commission", -1, "commission rate per fill, defaults to config value")
	save := flag.Bool("save", false, "persist the result to the result store")
	list := flag.Bool("list", false, "list registered strategies and exit")
	flag.Parse()

	if p := os.Getenv("TRADELAB_CONFIG"); p != "" {
		cfgPath = &p
	}

	registry := builtins.NewRegistry()
	if *list {
		for _, n := range registry.List() {
			fmt.Println(n)
		}
		return
	}

	if *name == "" || *symbolsArg == "" || *startArg == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, err := time.Parse("2006-01-02", *startArg)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", *startArg, err)
	}
	end := time.Now().UTC()
	if *endArg != "" {
		if end, err = time.Parse("2006-01-02", *endArg); err != nil {
			log.Fatalf("invalid end date %q: %v", *endArg, err)
		}
	}

	symbols := strings.Split(*symbolsArg, ",")
	for i := range symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(symbols[i]))
	}

	if *capital <= 0 {
		*capital = cfg.Backtest.InitialCapital
	}
	if *commission < 0 {
		*commission = cfg.Backtest.CommissionRate
	}

	bars := store.NewParquetStore(cfg.Storage.DataDir)
	bt := strategy.NewBacktester(bars, registry, cfg.Backtest.Market, *commission)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := bt.Run(ctx, *name, symbols, start, end, *capital)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	fmt.Printf("Strategy:        %s\n", res.Strategy)
	fmt.Printf("Symbols:         %s\n", strings.Join(res.Symbols, ", "))
	fmt.Printf("Period:          %s .. %s\n",
		res.Start.Format("2006-01-02"), res.End.Format("2006-01-02"))
	fmt.Printf("Initial capital: %.2f\n", res.InitialCapital)
	fmt.Printf("Final equity:    %.2f\n", res.FinalEquity)
	fmt.Printf("Total return:    %.2f%%\n", res.TotalReturn*100)
	fmt.Printf("Annual return:   %.2f%%\n", res.AnnualReturn*100)
	fmt.Printf("Max drawdown:    %.2f%%\n", res.MaxDrawdown*100)
	fmt.Printf("Sharpe ratio:    %.2f\n", res.SharpeRatio)
	fmt.Printf("Win rate:        %.2f%%\n", res.WinRate*100)
	fmt.Printf("Profit factor:   %.2f\n", res.ProfitFactor)
	fmt.Printf("Trades:          %d\n", res.TotalTrades)

	if *save {
		results, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening result store: %v", err)
		}
		defer results.Close()

		id, err := results.SaveResult(ctx, res.Record())
		if err != nil {
			log.Fatalf("saving result: %v", err)
		}
		fmt.Printf("Saved as result #%d\n", id)
	}
}
