package visit

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/gateway/middleware"
)

type Handler struct {
	service *Service
	guard   *middleware.Guard
}

func NewHandler(service *Service, guard *middleware.Guard) *Handler {
	return &Handler{service: service, guard: guard}
}

func (h *Handler) Register(r *mux.Router) {
	r.Handle("/visits", h.guard.Require("view_visit", h.handleList)).Methods(http.MethodGet)
	r.Handle("/visits", h.guard.Require("change_visit", h.handleCreate)).Methods(http.MethodPost)
	r.Handle("/visits/status", h.guard.Require("change_visit", h.handleUpdateByPatient)).Methods(http.MethodPost)
	r.Handle("/visits/patient/{name}", h.guard.Require("view_visit", h.handleListForPatient)).Methods(http.MethodGet)
	r.Handle("/visits/patient/{name}/active", h.guard.Require("view_visit", h.handleActiveForPatient)).Methods(http.MethodGet)
	r.Handle("/visit/{id}", h.guard.Require("view_visit", h.handleGet)).Methods(http.MethodGet)
	r.Handle("/visit/{id}/status", h.guard.Require("change_visit", h.handleUpdateByID)).Methods(http.MethodPatch)
	r.Handle("/visit/{id}", h.guard.Require("delete_visit", h.handleDelete)).Methods(http.MethodDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list visits")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Patient == "" || req.Doctor == "" || req.Hospital == "" || req.Department == "" {
		writeError(w, apperr.InvalidRequest("patient, doctor, hospital, and department are required"))
		return
	}
	view, err := h.service.Create(r.Context(), middleware.AuditContextFrom(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"visit": view})
}

func (h *Handler) handleUpdateByPatient(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePatientVisitStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Patient == "" || req.Status == "" {
		writeError(w, apperr.InvalidRequest("patient and status are required"))
		return
	}
	view, err := h.service.UpdateStatusByPatient(r.Context(), req.Patient, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visit": view})
}

func (h *Handler) handleListForPatient(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	views, err := h.service.ListForPatient(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

func (h *Handler) handleActiveForPatient(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	view, err := h.service.ActiveForPatient(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visit": view})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visit": view})
}

func (h *Handler) handleUpdateByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateVisitStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Status == "" {
		writeError(w, apperr.InvalidRequest("status is required"))
		return
	}
	view, err := h.service.UpdateStatusByID(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visit": view})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), middleware.AuditContextFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.InvalidRequest("invalid id"))
		return uuid.Nil, false
	}
	return id, true
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
