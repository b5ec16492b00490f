// Package report serves the report pipeline over HTTP.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"valuation_research/pkg/core/agent"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/pipeline"
	"valuation_research/pkg/core/store"
)

// Service is the part of the orchestrator the handlers use.
type Service interface {
	Run(ctx context.Context, req pipeline.StockRequest) (*pipeline.ReportOutcome, error)
	Plan(ctx context.Context, req pipeline.StockRequest) (agent.QueryPlanResult, error)
	Summary(ctx context.Context, req pipeline.StockRequest) (agent.ValuationReportResult, error)
	Latest(ctx context.Context, symbol string) (*store.StoredReport, error)
}

// GenerateRequest is the body of every POST endpoint.
type GenerateRequest struct {
	StockData *pipeline.StockRequest `json:"stockData"`
	Locale    string                 `json:"locale"`
}

// ErrorResponse is returned with every failed request.
type ErrorResponse struct {
	Error        string `json:"error"`
	Details      string `json:"details,omitempty"`
	Timestamp    string `json:"timestamp"`
	ResponseTime int64  `json:"responseTime"`
}

type Handler struct {
	svc    Service
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logging.OrNop(logger), now: time.Now}
}

// Register mounts the report routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/reports/generate", h.HandleGenerate)
	mux.HandleFunc("/api/reports/plan", h.HandlePlan)
	mux.HandleFunc("/api/reports/summary", h.HandleSummary)
	mux.HandleFunc("/api/reports/latest", h.HandleLatest)
}

func cors(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) fail(w http.ResponseWriter, status int, start time.Time, msg, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:        msg,
		Details:      details,
		Timestamp:    h.now().UTC().Format(time.RFC3339),
		ResponseTime: time.Since(start).Milliseconds(),
	})
}

// decode reads the request body and the optional bearer user ID. It writes
// the error response itself and returns false on bad input.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, start time.Time) (pipeline.StockRequest, bool) {
	if r.Method != http.MethodPost {
		h.fail(w, http.StatusMethodNotAllowed, start, "Method not allowed", r.Method)
		return pipeline.StockRequest{}, false
	}

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, http.StatusBadRequest, start, "Invalid request body", err.Error())
		return pipeline.StockRequest{}, false
	}
	if body.StockData == nil {
		h.fail(w, http.StatusBadRequest, start, "Missing stock data", "")
		return pipeline.StockRequest{}, false
	}

	req := *body.StockData
	if req.Locale == "" {
		req.Locale = body.Locale
	}
	if req.Locale == "" {
		req.Locale = "zh"
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		req.UserID = strings.TrimPrefix(auth, "Bearer ")
	}
	return req, true
}

func (h *Handler) failStage(w http.ResponseWriter, start time.Time, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, pipeline.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}
	h.logger.Error("[API] "+msg, zap.Error(err))
	h.fail(w, status, start, msg, err.Error())
}

// HandleGenerate runs the full pipeline: POST /api/reports/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	cors(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	start := h.now()

	req, ok := h.decode(w, r, start)
	if !ok {
		return
	}
	h.logger.Info("[API] 开始生成报告", zap.String("symbol", req.Symbol), zap.String("locale", req.Locale))

	out, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.failStage(w, start, "报告生成失败", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandlePlan returns only the query plan: POST /api/reports/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	cors(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	start := h.now()

	req, ok := h.decode(w, r, start)
	if !ok {
		return
	}
	plan, err := h.svc.Plan(r.Context(), req)
	if err != nil {
		h.failStage(w, start, "查询规划失败", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleSummary returns the quick summary: POST /api/reports/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	cors(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	start := h.now()

	req, ok := h.decode(w, r, start)
	if !ok {
		return
	}
	res, err := h.svc.Summary(r.Context(), req)
	if err != nil {
		h.failStage(w, start, "摘要生成失败", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleLatest returns the newest stored report: GET /api/reports/latest?symbol=AAPL
func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	cors(w, "GET")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	start := h.now()

	if r.Method != http.MethodGet {
		h.fail(w, http.StatusMethodNotAllowed, start, "Method not allowed", r.Method)
		return
	}
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		h.fail(w, http.StatusBadRequest, start, "Missing symbol", "")
		return
	}

	rep, err := h.svc.Latest(r.Context(), strings.ToUpper(symbol))
	if errors.Is(err, store.ErrNotFound) {
		h.fail(w, http.StatusNotFound, start, "Report not found", symbol)
		return
	}
	if err != nil {
		h.failStage(w, start, "报告读取失败", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
