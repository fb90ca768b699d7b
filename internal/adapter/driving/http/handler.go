// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"monarchwatch/internal/application"
	"monarchwatch/internal/domain/model"
	"monarchwatch/internal/domain/port/driven"
)

const defaultHistoryLimit = 30

// Handler serves the read-side API over the poller's published snapshots.
type Handler struct {
	pollSvc   *application.PollService
	snapshots driven.SnapshotStore
	logger    *slog.Logger
}

// NewHandler creates a Handler. snapshots may be nil when history
// persistence is disabled; the history endpoint then returns 404.
func NewHandler(pollSvc *application.PollService, snapshots driven.SnapshotStore, logger *slog.Logger) *Handler {
	return &Handler{
		pollSvc:   pollSvc,
		snapshots: snapshots,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/snapshot", h.GetSnapshot)
	mux.HandleFunc("GET /api/networth", h.GetNetWorth)
	mux.HandleFunc("GET /api/cashflow", h.GetCashflow)
	mux.HandleFunc("GET /api/history", h.GetHistory)
	mux.HandleFunc("POST /api/refresh", h.Refresh)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports liveness together with the poller's state and last failure.
// It always returns 200; "degraded" in the body signals a failed last cycle.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toHealthResponse(h.pollSvc))
}

// GetSnapshot returns the full latest snapshot.
func (h *Handler) GetSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

// GetNetWorth returns the net worth breakdown with per-type balance totals.
func (h *Handler) GetNetWorth(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toNetWorthResponse(snap))
}

// GetCashflow returns the cashflow summary with per-category breakdowns.
func (h *Handler) GetCashflow(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCashflowResponse(snap))
}

// GetHistory returns summaries of recent poll cycles, newest first. The
// optional limit query parameter caps the result (default 30, max 365).
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		writeError(w, http.StatusNotFound, "history persistence is disabled")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 365")
			return
		}
		limit = parsed
	}

	records, err := h.snapshots.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list snapshot history", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]HistoryEntryResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toHistoryEntryResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh triggers an immediate poll cycle and blocks until it completes.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.pollSvc.RefreshNow(r.Context()); err != nil {
		h.logger.Error("manual refresh failed", "error", err)
		reason, _ := h.pollSvc.LastFailure()
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:  "refresh failed",
			Reason: string(reason),
		})
		return
	}

	snap := h.pollSvc.Latest()
	resp := RefreshResponse{Status: "refreshed"}
	if snap != nil {
		resp.FetchedAt = snap.FetchedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// latest fetches the current snapshot or writes the 503 "no data yet"
// envelope, carrying the poller's typed failure reason when one applies.
func (h *Handler) latest(w http.ResponseWriter) (*model.Snapshot, bool) {
	snap := h.pollSvc.Latest()
	if snap == nil {
		reason, _ := h.pollSvc.LastFailure()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error:  "no snapshot available yet",
			Reason: string(reason),
		})
		return nil, false
	}
	return snap, true
}
