// Package tradelab provides a Go client for the tradelab-server HTTP API.
package tradelab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running tradelab-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RunRequest describes a backtest to run.
type RunRequest struct {
	Strategy       string   `json:"strategy"`
	Symbols        []string `json:"symbols"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	InitialCapital float64  `json:"initialCapital,omitempty"`
	CommissionRate *float64 `json:"commissionRate,omitempty"`
}

// Trade is one round trip reported in a result. Times are RFC 3339 strings.
type Trade struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"`
	Quantity   float64 `json:"quantity"`
	EntryPrice float64 `json:"entryPrice"`
	EntryTime  string  `json:"entryTime"`
	ExitPrice  float64 `json:"exitPrice"`
	ExitTime   string  `json:"exitTime"`
	PnL        float64 `json:"pnl"`
	PnLPct     float64 `json:"pnlPct"`
	Commission float64 `json:"commission"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time   string  `json:"time"`
	Equity float64 `json:"equity"`
}

// Result is a finished backtest. List calls return summaries with Trades
// and EquityCurve empty. Start and End are YYYY-MM-DD dates; CreatedAt is
// an RFC 3339 timestamp.
type Result struct {
	ID             int64    `json:"id"`
	Strategy       string   `json:"strategy"`
	Symbols        []string `json:"symbols"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	InitialCapital float64  `json:"initialCapital"`
	FinalEquity    float64  `json:"finalEquity"`
	TotalReturn    float64  `json:"totalReturn"`
	AnnualReturn   float64  `json:"annualReturn"`
	MaxDrawdown    float64  `json:"maxDrawdown"`
	SharpeRatio    float64  `json:"sharpeRatio"`
	WinRate        float64  `json:"winRate"`
	ProfitFactor   float64  `json:"profitFactor"`
	TotalTrades    int      `json:"totalTrades"`
	CreatedAt      string   `json:"createdAt"`

	Trades      []Trade       `json:"trades,omitempty"`
	EquityCurve []EquityPoint `json:"equityCurve,omitempty"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// RunBacktest runs a backtest and returns the full result.
func (c *Client) RunBacktest(ctx context.Context, req RunRequest) (*Result, error) {
	var res Result
	if err := c.do(ctx, http.MethodPost, "/api/backtests", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListResults returns stored result summaries, newest first.
func (c *Client) ListResults(ctx context.Context) ([]Result, error) {
	var res struct {
		Results []Result `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/backtests", nil, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// GetResult returns a stored result by ID, including trades and curve.
func (c *Client) GetResult(ctx context.Context, id int64) (*Result, error) {
	var res Result
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/backtests/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteResult removes a stored result.
func (c *Client) DeleteResult(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/backtests/%d", id), nil, nil)
}

// Strategies returns the names of the registered strategies.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var res struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &res); err != nil {
		return nil, err
	}
	return res.Strategies, nil
}

// Symbols returns the symbols available in the bar store.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var res struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/symbols", nil, &res); err != nil {
		return nil, err
	}
	return res.Symbols, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
