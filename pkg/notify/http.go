package notify

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/gateway/middleware"
)

type Handler struct {
	tasks *TaskStore
	guard *middleware.Guard
}

func NewHandler(tasks *TaskStore, guard *middleware.Guard) *Handler {
	return &Handler{tasks: tasks, guard: guard}
}

func (h *Handler) Register(r *mux.Router) {
	r.Handle("/task/{id}", h.guard.Require("view_task", h.handleGetTask)).Methods(http.MethodGet)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	status, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			writeError(w, apperr.NotFound("task", taskID))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if appErr, ok := apperr.As(err); ok {
		writeJSON(w, status, map[string]interface{}{"error": appErr})
		return
	}
	writeJSON(w, status, map[string]interface{}{"error": map[string]string{
		"kind":    "internal",
		"message": "internal error",
	}})
}
