// Package api exposes the capgains engine over HTTP with JSON bodies.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/etnz/capgains"
	"github.com/etnz/capgains/date"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/shopspring/decimal"
)

type Server struct {
	engine *capgains.Engine
	router *mux.Router
	log    zerolog.Logger
}

func NewServer(e *capgains.Engine, logger zerolog.Logger) *Server {
	s := &Server{engine: e, log: logger}

	r := mux.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/holdings/{id}/lots", s.handleListLots).Methods(http.MethodGet)
	r.HandleFunc("/holdings/{id}/sales:simulate", s.handleSimulateSale).Methods(http.MethodPost)
	r.HandleFunc("/holdings/{id}/sales", s.handleExecuteSale).Methods(http.MethodPost)
	r.HandleFunc("/portfolios/{id}/tax-summaries/{year:[0-9]+}", s.handleCalculateSummary).Methods(http.MethodPost)
	r.HandleFunc("/portfolios/{id}/tax-summaries/{year:[0-9]+}", s.handleGetSummary).Methods(http.MethodGet)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// SaleBody is the payload of both sale endpoints. The holding comes from the path.
// A sale price without currency is in the portfolio currency.
type SaleBody struct {
	Quantity  capgains.Quantity `json:"quantity"`
	SalePrice decimal.Decimal   `json:"salePrice"`
	Currency  string            `json:"currency,omitempty"`
	SaleDate  date.Date         `json:"saleDate"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListLots(w http.ResponseWriter, r *http.Request) {
	var statusIn []capgains.LotStatus
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := capgains.ParseLotStatus(q)
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", capgains.ErrInvalidInput, err))
			return
		}
		statusIn = append(statusIn, st)
	}
	lots, err := s.engine.Lots(r.Context(), mux.Vars(r)["id"], statusIn...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

func decodeSale(r *http.Request) (capgains.SaleRequest, error) {
	var body SaleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return capgains.SaleRequest{}, fmt.Errorf("%w: %v", capgains.ErrInvalidInput, err)
	}
	return capgains.SaleRequest{
		HoldingID: mux.Vars(r)["id"],
		Quantity:  body.Quantity,
		SalePrice: capgains.M(body.SalePrice, body.Currency),
		SaleDate:  body.SaleDate,
	}, nil
}

func (s *Server) handleSimulateSale(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSale(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sim, err := s.engine.SimulateSale(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

func (s *Server) handleExecuteSale(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSale(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ev, err := s.engine.ExecuteSale(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func summaryKey(r *http.Request) (string, int, error) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		return "", 0, fmt.Errorf("%w: invalid year %q", capgains.ErrInvalidInput, vars["year"])
	}
	return vars["id"], year, nil
}

func (s *Server) handleCalculateSummary(w http.ResponseWriter, r *http.Request) {
	id, year, err := summaryKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sum, err := s.engine.CalculateSummary(r.Context(), id, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id, year, err := summaryKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sum, err := s.engine.Summary(r.Context(), id, year)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Partial *capgains.SaleEvent `json:"partial,omitempty"`
}

func statusOf(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "invalid_input":
		return http.StatusBadRequest
	case "insufficient_lots":
		return http.StatusUnprocessableEntity
	case "concurrent_modification":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := capgains.ErrorKind(err)
	body := ErrorBody{Error: kind, Message: err.Error()}
	var ile *capgains.InsufficientLotsError
	if errors.As(err, &ile) {
		body.Partial = &ile.Partial
	}
	writeJSON(w, statusOf(kind), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
