package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"ssl-backtest/internal/logger"
	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

var errNoBars = errors.New("no bars for symbol")

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/symbols", s.handleSymbols)
	s.mux.HandleFunc("/api/series", s.handleSeries)
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	symbols, err := s.source.Symbols(r.Context())
	if err != nil {
		s.log.Error("gateway symbols failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, symbols)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	symbol, res, err := s.run(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SeriesResponse{
		Symbol:  symbol,
		Params:  res.params,
		Summary: res.Summary,
		Rows:    res.Rows,
	})
}

// handleWS validates and computes before upgrading, so every rejection is a
// plain HTTP status. Once upgraded the series is streamed row by row,
// followed by a done message and a close frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.run(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("gateway ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	for i := range res.Rows {
		if err := writeEnvelope(conn, Envelope{Type: "row", Seq: i, Row: &res.Rows[i]}); err != nil {
			s.log.Debug("gateway ws client gone", slog.Int("seq", i), slog.String("error", err.Error()))
			return
		}
	}
	summary := res.Summary
	if err := writeEnvelope(conn, Envelope{Type: "done", Summary: &summary}); err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

type runResult struct {
	*strategy.Result
	params strategy.Params
}

func (s *Server) run(r *http.Request) (string, *runResult, error) {
	q := r.URL.Query()
	symbol := q.Get("symbol")
	if symbol == "" {
		return "", nil, &model.InvalidParameterError{Name: "symbol", Value: "", Reason: "required"}
	}
	params, err := paramsFromQuery(q, s.defaults)
	if err != nil {
		s.rec.ObserveFailure(err)
		return "", nil, err
	}

	ctx := logger.WithRunID(r.Context(), logger.NewRunID(symbol, time.Now()))
	engine, err := strategy.NewEngine(params, strategy.WithRecorder(s.rec), strategy.WithLogger(s.log))
	if err != nil {
		s.rec.ObserveFailure(err)
		return "", nil, err
	}

	bars, err := s.source.ReadBars(ctx, symbol)
	if err != nil {
		s.rec.ObserveFailure(err)
		return "", nil, err
	}
	if len(bars) == 0 {
		return "", nil, fmt.Errorf("%w: %s", errNoBars, symbol)
	}

	res, err := engine.Run(ctx, bars)
	if err != nil {
		return "", nil, err
	}
	return symbol, &runResult{Result: res, params: params}, nil
}

// paramsFromQuery overlays length, capital and risk from q onto defaults.
func paramsFromQuery(q url.Values, defaults strategy.Params) (strategy.Params, error) {
	p := defaults
	if v := q.Get("length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, &model.InvalidParameterError{Name: "length", Value: v, Reason: "not an integer"}
		}
		p.Length = n
	}
	if v := q.Get("capital"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, &model.InvalidParameterError{Name: "capital", Value: v, Reason: "not a number"}
		}
		p.Capital = f
	}
	if v := q.Get("risk"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, &model.InvalidParameterError{Name: "risk_percent", Value: v, Reason: "not a number"}
		}
		p.RiskPercent = f
	}
	return p, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, errNoBars):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSchema):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func writeEnvelope(conn *websocket.Conn, env Envelope) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
