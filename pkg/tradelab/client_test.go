package tradelab

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/backtests", func(w http.ResponseWriter, r *http.Request) {
		var req RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Result{
			ID: 7, Strategy: req.Strategy, Symbols: req.Symbols,
			FinalEquity: 10100, TotalTrades: 1,
			Trades: []Trade{{Symbol: "AAPL", Direction: "long", PnL: 100}},
		})
	})
	mux.HandleFunc("GET /api/backtests", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string][]Result{
			"results": {{ID: 7, Strategy: "sma-cross"}},
		})
	})
	mux.HandleFunc("GET /api/backtests/7", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Result{ID: 7, Strategy: "sma-cross", TotalTrades: 1})
	})
	mux.HandleFunc("GET /api/backtests/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "result not found"})
	})
	mux.HandleFunc("DELETE /api/backtests/7", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/strategies", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string][]string{"strategies": {"rsi-reversal", "sma-cross"}})
	})
	mux.HandleFunc("GET /api/symbols", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string][]string{"symbols": {"AAPL"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	res, err := c.RunBacktest(ctx, RunRequest{
		Strategy: "sma-cross", Symbols: []string{"AAPL"},
		Start: "2024-01-01", End: "2024-06-01",
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if res.ID != 7 || res.Strategy != "sma-cross" || len(res.Trades) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	list, err := c.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 1 || list[0].ID != 7 {
		t.Errorf("unexpected list: %+v", list)
	}

	got, err := c.GetResult(ctx, 7)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.TotalTrades != 1 {
		t.Errorf("TotalTrades = %d, want 1", got.TotalTrades)
	}

	if err := c.DeleteResult(ctx, 7); err != nil {
		t.Errorf("DeleteResult: %v", err)
	}

	strategies, err := c.Strategies(ctx)
	if err != nil {
		t.Fatalf("Strategies: %v", err)
	}
	if len(strategies) != 2 {
		t.Errorf("strategies = %v", strategies)
	}

	symbols, err := c.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(symbols) != 1 || symbols[0] != "AAPL" {
		t.Errorf("symbols = %v", symbols)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := newFakeServer(t)
	c := NewClient(srv.URL)

	_, err := c.GetResult(context.Background(), 404)
	if err == nil {
		t.Fatal("expected error for missing result")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "result not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}
