// Package api exposes the traceability query surface over read-only HTTP
// endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fibretrace/internal/core"
	"fibretrace/pkg/domain"
)

const defaultRecentItems = 5

// Handler serves chain lookups, dashboard summaries, and the audit trail.
type Handler struct {
	Service *core.Service
}

// NewHandler constructs a query HTTP handler over the service.
func NewHandler(service *core.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "service not configured")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/summary":
		h.handleSummary(w, r)
	case path == "/api/v1/audit-log":
		h.handleAuditLog(w, r)
	case path == "/api/v1/derive":
		h.handleDerive(w, r)
	case strings.HasPrefix(path, "/api/v1/chain/"):
		h.handleChain(w, r, strings.TrimPrefix(path, "/api/v1/chain/"))
	case strings.HasPrefix(path, "/api/v1/actors/"):
		h.handleActor(w, r, strings.TrimPrefix(path, "/api/v1/actors/"))
	default:
		http.NotFound(w, r)
	}
}

// chainResponse flattens a resolved chain for serialization. TraceableItem
// values marshal as their concrete records.
type chainResponse struct {
	Root         domain.TraceableItem   `json:"root"`
	Parents      []domain.TraceableItem `json:"parents"`
	Grandparents []domain.InboundBatch  `json:"grandparents"`
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "chain endpoint not found")
		return
	}
	chain, found, err := h.Service.ResolveChain(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, chainResponse{
		Root:         chain.Root,
		Parents:      chain.Parents,
		Grandparents: chain.Grandparents,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	recent := defaultRecentItems
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "recent must be a non-negative integer")
			return
		}
		recent = n
	}
	summary, err := h.Service.Summarize(r.Context(), recent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.AuditLog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleDerive previews the attributes a fibre pack would inherit from the
// given sorted packs, without creating anything.
func (h *Handler) handleDerive(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("parents"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "parents query parameter required")
		return
	}
	ids := strings.Split(raw, ",")
	for i, id := range ids {
		ids[i] = strings.TrimSpace(id)
	}
	derived, err := h.Service.DeriveFibreAttributesByID(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, derived)
}

func (h *Handler) handleActor(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] != "items" {
		writeError(w, http.StatusNotFound, "actor endpoint not found")
		return
	}
	count, err := h.Service.ActorItemCount(r.Context(), segments[0])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actor": segments[0], "items": count})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
