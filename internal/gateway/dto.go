package gateway

import (
	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

// SeriesResponse is the REST response type for /api/series.
type SeriesResponse struct {
	Symbol  string           `json:"symbol"`
	Params  strategy.Params  `json:"params"`
	Summary strategy.Summary `json:"summary"`
	Rows    []model.Row      `json:"rows"`
}

// Envelope is one WebSocket message of a streamed series.
type Envelope struct {
	Type    string            `json:"type"` // "row" or "done"
	Seq     int               `json:"seq"`
	Row     *model.Row        `json:"row,omitempty"`
	Summary *strategy.Summary `json:"summary,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
