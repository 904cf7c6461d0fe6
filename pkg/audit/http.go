package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/meridian-health/hms/pkg/gateway/middleware"
)

const defaultListLimit = 100

type Handler struct {
	repo  *Repository
	guard *middleware.Guard
}

func NewHandler(repo *Repository, guard *middleware.Guard) *Handler {
	return &Handler{repo: repo, guard: guard}
}

func (h *Handler) Register(r *mux.Router) {
	r.Handle("/audit", h.guard.Require("view_audit", h.handleList)).Methods(http.MethodGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.repo.List(r.Context(), limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(records)
}
