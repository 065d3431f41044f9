package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"fuzzy-advisor/internal/advisor"
	"fuzzy-advisor/internal/fuzzy"
	"fuzzy-advisor/internal/model"
)

// Handlers serves the /api/v1 endpoints.
type Handlers struct {
	svc           *advisor.Service
	definition    fuzzy.Definition
	defaultSymbol string
	now           func() time.Time
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeJSON encodes v before touching the header, so an unencodable value
// turns into a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response", Kind: advisor.KindInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// StatusFor maps an advisor error kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case advisor.KindInvalidRange:
		return http.StatusBadRequest
	case advisor.KindInsufficientHistory, advisor.KindInvalidSeries, advisor.KindInference:
		return http.StatusUnprocessableEntity
	case advisor.KindNoData:
		return http.StatusNotFound
	case advisor.KindUpstream:
		return http.StatusBadGateway
	case advisor.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Analyze runs one recommendation.
// GET /api/v1/analyze?symbol=BTC-USD&from=2024-01-01&to=2024-06-01[&chart=false]
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req, err := advisor.ParseRequest(q.Get("symbol"), q.Get("from"), q.Get("to"), h.defaultSymbol, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, advisor.KindInvalidRange, err.Error())
		return
	}

	withChart := true
	if v := q.Get("chart"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			withChart = b
		}
	}

	rep, err := h.svc.Run(r.Context(), req)
	if err != nil {
		kind := advisor.ErrorKind(err)
		writeError(w, StatusFor(kind), kind, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep.Summary(withChart))
}

// Fuzzy returns the active fuzzy system definition.
// GET /api/v1/fuzzy
func (h *Handlers) Fuzzy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.definition)
}

// Infer evaluates the fuzzy engine on a raw oscillator value.
// GET /api/v1/fuzzy/infer?rsi=27.5
func (h *Handlers) Infer(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("rsi")
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(x, 0) {
		writeError(w, http.StatusBadRequest, "invalid_input", "rsi must be a finite number")
		return
	}

	a := h.svc.Analyzer()
	inf, err := a.Engine().Explain(x)
	if err != nil {
		kind := advisor.ErrorKind(err)
		writeError(w, StatusFor(kind), kind, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		fuzzy.Inference
		Recommendation model.Recommendation `json:"recommendation"`
	}{inf, a.Classify(inf.Score)})
}
