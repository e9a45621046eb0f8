package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/store"
	"tradelab/internal/strategy"
	"tradelab/internal/util"
)

// memBars is an in-memory BarStore for handler tests.
type memBars struct {
	bars map[string][]domain.Bar
}

func (m *memBars) WriteBars(_ context.Context, bars []domain.Bar) error {
	for _, b := range bars {
		m.bars[b.Symbol] = append(m.bars[b.Symbol], b)
	}
	return nil
}

func (m *memBars) ReadBars(_ context.Context, symbol, _ string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range m.bars[symbol] {
		if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBars) ListSymbols(_ context.Context, _ string) ([]string, error) {
	var symbols []string
	for s := range m.bars {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// buyOnce buys one share of the first symbol on the first bar.
type buyOnce struct{}

func (buyOnce) Name() string                 { return "buy-once" }
func (buyOnce) Init(_ context.Context) error { return nil }
func (buyOnce) OnBar(_ context.Context, v *strategy.View) error {
	if v.Index() == 0 {
		_, err := v.Buy(v.Symbols()[0], 1)
		return err
	}
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	epoch := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 10)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = domain.Bar{
			Symbol: "AAPL", Timestamp: epoch.AddDate(0, 0, i),
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	barStore := &memBars{bars: map[string][]domain.Bar{"AAPL": bars}}

	results, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { results.Close() })

	registry := strategy.NewRegistry()
	registry.Register(buyOnce{})

	bt := strategy.NewBacktester(barStore, registry, "us", 0)
	return NewServer(bt, registry, barStore, results, "us", 10000, util.NewLogger("error", "json"))
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunListGetDelete(t *testing.T) {
	h := newTestServer(t).Handler()

	// Run.
	rec := doJSON(t, h, "POST", "/api/backtests", `{
		"strategy": "buy-once",
		"symbols": ["AAPL"],
		"start": "2024-01-01",
		"end": "2024-02-01"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created ResultJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding created result: %v", err)
	}
	if created.ID == 0 {
		t.Error("created result has id 0")
	}
	if created.Strategy != "buy-once" || created.TotalTrades != 1 {
		t.Errorf("created = %+v, want buy-once with one trade", created)
	}
	// Bought 1 share at 100, force-closed at 109.
	if created.FinalEquity != 10009 {
		t.Errorf("FinalEquity = %v, want 10009", created.FinalEquity)
	}
	if len(created.EquityCurve) != 10 {
		t.Errorf("equity curve has %d points, want 10", len(created.EquityCurve))
	}

	// List.
	rec = doJSON(t, h, "GET", "/api/backtests", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET list status = %d", rec.Code)
	}
	var list ResultsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list.Results) != 1 {
		t.Fatalf("list has %d results, want 1", len(list.Results))
	}
	if len(list.Results[0].Trades) != 0 {
		t.Error("list entries should omit trades")
	}

	// Get.
	rec = doJSON(t, h, "GET", "/api/backtests/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var full ResultJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &full); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(full.Trades) != 1 || len(full.EquityCurve) != 10 {
		t.Errorf("full result has %d trades, %d curve points; want 1 and 10",
			len(full.Trades), len(full.EquityCurve))
	}

	// Delete.
	rec = doJSON(t, h, "DELETE", "/api/backtests/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/api/backtests/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", rec.Code)
	}
}

func TestRunValidation(t *testing.T) {
	h := newTestServer(t).Handler()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing strategy", `{"symbols":["AAPL"],"start":"2024-01-01","end":"2024-02-01"}`, http.StatusBadRequest},
		{"bad date", `{"strategy":"buy-once","symbols":["AAPL"],"start":"nope","end":"2024-02-01"}`, http.StatusBadRequest},
		{"end before start", `{"strategy":"buy-once","symbols":["AAPL"],"start":"2024-02-01","end":"2024-01-01"}`, http.StatusBadRequest},
		{"unknown strategy", `{"strategy":"nope","symbols":["AAPL"],"start":"2024-01-01","end":"2024-02-01"}`, http.StatusBadRequest},
		{"no bars", `{"strategy":"buy-once","symbols":["TSLA"],"start":"2024-01-01","end":"2024-02-01"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, "POST", "/api/backtests", tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}
}

func TestStrategiesAndSymbols(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := doJSON(t, h, "GET", "/api/strategies", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET strategies status = %d", rec.Code)
	}
	var sr StrategiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sr); err != nil {
		t.Fatalf("decoding strategies: %v", err)
	}
	if len(sr.Strategies) != 1 || sr.Strategies[0] != "buy-once" {
		t.Errorf("strategies = %v, want [buy-once]", sr.Strategies)
	}

	rec = doJSON(t, h, "GET", "/api/symbols", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET symbols status = %d", rec.Code)
	}
	var sy SymbolsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sy); err != nil {
		t.Fatalf("decoding symbols: %v", err)
	}
	if len(sy.Symbols) != 1 || sy.Symbols[0] != "AAPL" {
		t.Errorf("symbols = %v, want [AAPL]", sy.Symbols)
	}
}
