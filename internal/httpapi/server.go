package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tradelab/internal/domain"
	"tradelab/internal/store"
	"tradelab/internal/strategy"
)

// Server serves the backtest HTTP API: it runs backtests against the bar
// store and persists their results for later retrieval.
type Server struct {
	backtester *strategy.Backtester
	registry   *strategy.Registry
	bars       store.BarStore
	results    store.ResultStore
	market     string
	capital    float64
	log        *slog.Logger
}

// NewServer creates a Server. capital is the default initial capital applied
// when a run request leaves it unset.
func NewServer(
	backtester *strategy.Backtester,
	registry *strategy.Registry,
	bars store.BarStore,
	results store.ResultStore,
	market string,
	capital float64,
	log *slog.Logger,
) *Server {
	return &Server{
		backtester: backtester,
		registry:   registry,
		bars:       bars,
		results:    results,
		market:     market,
		capital:    capital,
		log:        log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtests", s.handleRunBacktest)
	mux.HandleFunc("GET /api/backtests", s.handleListResults)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleGetResult)
	mux.HandleFunc("DELETE /api/backtests/{id}", s.handleDeleteResult)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Strategy == "" || len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "strategy and symbols are required")
		return
	}

	start, err := time.Parse("2006-01-02", req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid start date %q", req.Start))
		return
	}
	end, err := time.Parse("2006-01-02", req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid end date %q", req.End))
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end date precedes start date")
		return
	}

	capital := req.InitialCapital
	if capital == 0 {
		capital = s.capital
	}

	bt := s.backtester
	if req.CommissionRate != nil {
		bt = strategy.NewBacktester(s.bars, s.registry, s.market, *req.CommissionRate)
	}

	res, err := bt.Run(r.Context(), req.Strategy, req.Symbols, start, end, capital)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConfig):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrData):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.log.Error("backtest failed", "strategy", req.Strategy, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	rec := res.Record()
	id, err := s.results.SaveResult(r.Context(), rec)
	if err != nil {
		s.log.Error("saving result", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to persist result")
		return
	}
	rec.ID = id
	rec.CreatedAt = time.Now().UTC()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, convertRecord(rec, true))
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.results.ListResults(r.Context(), limit)
	if err != nil {
		s.log.Error("listing results", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	out := make([]ResultJSON, 0, len(recs))
	for i := range recs {
		out = append(out, convertRecord(&recs[i], false))
	}
	writeJSON(w, ResultsResponse{Results: out})
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid result id")
		return
	}

	rec, err := s.results.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("result %d not found", id))
			return
		}
		s.log.Error("loading result", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load result")
		return
	}
	writeJSON(w, convertRecord(rec, true))
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid result id")
		return
	}

	if err := s.results.DeleteResult(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("result %d not found", id))
			return
		}
		s.log.Error("deleting result", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete result")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.registry.List()})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := s.bars.ListSymbols(r.Context(), s.market)
	if err != nil {
		s.log.Error("listing symbols", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list symbols")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Symbols: symbols})
}
