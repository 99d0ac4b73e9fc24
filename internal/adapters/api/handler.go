package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/internal/domain/risk"
	"github.com/lotline/sentinel/pkg/auth"
)

// Handler exposes the fraud and risk services over HTTP
type Handler struct {
	fraudService *fraud.Service
	gate         *risk.Gate
	logger       *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(fraudService *fraud.Service, gate *risk.Gate, logger *slog.Logger) *Handler {
	return &Handler{
		fraudService: fraudService,
		gate:         gate,
		logger:       logger,
	}
}

// Routes mounts all routes on a chi router. Everything under /api/v1
// requires a valid bearer token.
func (h *Handler) Routes(signer *auth.Signer) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(signer))

		r.Post("/fraud/evaluate", h.evaluateBid)
		r.Get("/fraud/signals", h.listSignals)
		r.Get("/fraud/signals/{id}", h.getSignal)
		r.Post("/fraud/signals/{id}/resolve", h.resolveSignal)

		r.Get("/users/{id}/risk", h.getRiskSnapshot)
		r.Get("/sellers/{id}/publish-gate", h.evaluatePublishGate)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type evaluateBidRequest struct {
	AuctionID string `json:"auction_id"`
	UserID    int64  `json:"user_id"`
	BidID     string `json:"bid_id"`
}

type evaluateBidResponse struct {
	SignalID int64 `json:"signal_id,omitempty"`
	Created  bool  `json:"created"`
}

func (h *Handler) evaluateBid(w http.ResponseWriter, r *http.Request) {
	var req evaluateBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid auction_id")
		return
	}
	bidID, err := uuid.Parse(req.BidID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid bid_id")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	signalID, created, err := h.fraudService.EvaluateBid(r.Context(), fraud.EvaluateBidCommand{
		AuctionID: auctionID,
		UserID:    req.UserID,
		BidID:     bidID,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateBidResponse{SignalID: signalID, Created: created})
}

func (h *Handler) listSignals(w http.ResponseWriter, r *http.Request) {
	q := fraud.ListSignalsQuery{}

	if raw := r.URL.Query().Get("auction_id"); raw != "" {
		auctionID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid auction_id")
			return
		}
		q.AuctionID = &auctionID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := fraud.SignalStatus(raw)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		q.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		q.Offset = offset
	}

	signals, err := h.fraudService.ListSignals(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]signalResponse, len(signals))
	for i, signal := range signals {
		out[i] = mapSignal(signal)
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": out})
}

func (h *Handler) getSignal(w http.ResponseWriter, r *http.Request) {
	signalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return
	}

	signal, err := h.fraudService.GetSignal(r.Context(), signalID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := mapSignal(signal)
	resp.Summary = signal.Summary()
	writeJSON(w, http.StatusOK, resp)
}

type resolveSignalRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) resolveSignal(w http.ResponseWriter, r *http.Request) {
	signalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid signal id")
		return
	}

	subject, ok := auth.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authenticated user")
		return
	}
	resolverID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid subject in token")
		return
	}

	var req resolveSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signal, err := h.fraudService.ResolveSignal(r.Context(), fraud.ResolveSignalCommand{
		SignalID:   signalID,
		ResolverID: resolverID,
		Status:     fraud.SignalStatus(req.Status),
		Note:       req.Note,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSignal(signal))
}

func (h *Handler) getRiskSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	snapshot, err := h.gate.Snapshot(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSnapshot(snapshot))
}

func (h *Handler) evaluatePublishGate(w http.ResponseWriter, r *http.Request) {
	sellerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid seller id")
		return
	}

	decision, err := h.gate.EvaluatePublish(r.Context(), sellerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	reasons := make([]string, len(decision.RiskReasons))
	for i, code := range decision.RiskReasons {
		reasons[i] = string(code)
	}
	writeJSON(w, http.StatusOK, publishGateResponse{
		Allowed:      decision.Allowed,
		RiskScore:    decision.RiskScore,
		RiskLevel:    string(decision.RiskLevel),
		RiskReasons:  reasons,
		BlockMessage: decision.BlockMessage,
	})
}

type publishGateResponse struct {
	Allowed      bool     `json:"allowed"`
	RiskScore    int      `json:"risk_score"`
	RiskLevel    string   `json:"risk_level"`
	RiskReasons  []string `json:"risk_reasons"`
	BlockMessage string   `json:"block_message,omitempty"`
}

type signalResponse struct {
	ID             int64          `json:"id"`
	AuctionID      string         `json:"auction_id"`
	UserID         int64          `json:"user_id"`
	BidID          *string        `json:"bid_id,omitempty"`
	Score          int            `json:"score"`
	Reasons        []fraud.Reason `json:"reasons"`
	Status         string         `json:"status"`
	ResolvedBy     *int64         `json:"resolved_by,omitempty"`
	ResolutionNote *string        `json:"resolution_note,omitempty"`
	ResolvedAt     *string        `json:"resolved_at,omitempty"`
	CreatedAt      string         `json:"created_at"`
	Summary        string         `json:"summary,omitempty"`
}

func mapSignal(signal *fraud.FraudSignal) signalResponse {
	resp := signalResponse{
		ID:             signal.ID,
		AuctionID:      signal.AuctionID.String(),
		UserID:         signal.UserID,
		Score:          signal.Score,
		Reasons:        signal.Reasons,
		Status:         string(signal.Status),
		ResolvedBy:     signal.ResolvedBy,
		ResolutionNote: signal.ResolutionNote,
		CreatedAt:      signal.CreatedAt.Format(time.RFC3339),
	}
	if signal.BidID != nil {
		bidID := signal.BidID.String()
		resp.BidID = &bidID
	}
	if signal.ResolvedAt != nil {
		resolvedAt := signal.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &resolvedAt
	}
	return resp
}

type snapshotResponse struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"`
	Reasons []string `json:"reasons"`
}

func mapSnapshot(snapshot risk.Snapshot) snapshotResponse {
	reasons := make([]string, len(snapshot.Reasons))
	for i, code := range snapshot.Reasons {
		reasons[i] = string(code)
	}
	return snapshotResponse{
		Score:   snapshot.Score,
		Level:   string(snapshot.Level),
		Reasons: reasons,
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fraud.ErrSignalNotFound),
		errors.Is(err, fraud.ErrAuctionNotFound),
		errors.Is(err, fraud.ErrBidderNotFound),
		errors.Is(err, fraud.ErrBidNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, fraud.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, fraud.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
