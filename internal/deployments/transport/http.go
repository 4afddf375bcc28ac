// Package transport provides HTTP handlers for the deployments domain.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/deployctl/internal/deployments/domain"
)

// Service defines the deployment service interface for HTTP transport.
type Service interface {
	Get(ctx context.Context, chainID int64, address string) (*domain.Deployment, error)
	List(ctx context.Context, filter domain.ListFilter, pagination domain.PaginationParams) (*domain.ListResult, error)
}

// Handler handles HTTP requests for deployments.
type Handler struct {
	svc Service
}

// NewHandler creates a new deployments HTTP handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterReadRoutes registers the read-only deployment routes.
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{chainId}/{address}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 20
	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var chainID int64
	if c := q.Get("chain_id"); c != "" {
		parsed, err := strconv.ParseInt(c, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "chain_id must be a positive integer")
			return
		}
		chainID = parsed
	}

	result, err := h.svc.List(r.Context(), domain.ListFilter{
		ChainID:            chainID,
		Network:            q.Get("network"),
		Contract:           q.Get("contract"),
		VerificationStatus: q.Get("status"),
	}, domain.PaginationParams{
		Limit:  limit,
		Cursor: q.Get("cursor"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid cursor")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list deployments")
		return
	}

	data := make([]DeploymentItem, len(result.Deployments))
	for i, d := range result.Deployments {
		data[i] = toItem(d)
	}

	writeJSON(w, http.StatusOK, DeploymentListResponse{
		Data: data,
		Pagination: Pagination{
			Limit:      limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	chainID, err := strconv.ParseInt(chi.URLParam(r, "chainId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "chainId must be an integer")
		return
	}
	address := chi.URLParam(r, "address")

	deployment, err := h.svc.Get(r.Context(), chainID, address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Deployment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get deployment")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(deployment))
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
