package directory

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
	r.Handle("/hospitals", h.guard.Require("view_hospital", h.handleListHospitals)).Methods(http.MethodGet)
	r.Handle("/hospitals", h.guard.Require("change_hospital", h.handleUpsertHospital)).Methods(http.MethodPost)
	r.Handle("/hospital/{id}", h.guard.Require("view_hospital", h.handleGetHospital)).Methods(http.MethodGet)
	r.Handle("/hospital/{id}", h.guard.Require("change_hospital", h.handleUpdateHospital)).Methods(http.MethodPut)
	r.Handle("/hospital/{id}", h.guard.Require("delete_hospital", h.handleDeleteHospital)).Methods(http.MethodDelete)

	r.Handle("/departments", h.guard.Require("view_department", h.handleListDepartments)).Methods(http.MethodGet)
	r.Handle("/department/{id}", h.guard.Require("view_department", h.handleGetDepartment)).Methods(http.MethodGet)
	r.Handle("/department/{id}", h.guard.Require("change_department", h.handleUpdateDepartment)).Methods(http.MethodPut)
	r.Handle("/department/{id}", h.guard.Require("delete_department", h.handleDeleteDepartment)).Methods(http.MethodDelete)

	r.Handle("/doctors", h.guard.Require("view_doctor", h.handleListDoctors)).Methods(http.MethodGet)
	r.Handle("/doctors", h.guard.Require("change_doctor", h.handleCreateDoctor)).Methods(http.MethodPost)
	r.Handle("/doctor/{id}", h.guard.Require("view_doctor", h.handleGetDoctor)).Methods(http.MethodGet)
	r.Handle("/doctor/{id}", h.guard.Require("change_doctor", h.handleUpdateDoctor)).Methods(http.MethodPut)
	r.Handle("/doctor/{id}", h.guard.Require("delete_doctor", h.handleDeleteDoctor)).Methods(http.MethodDelete)
}

func (h *Handler) handleListHospitals(w http.ResponseWriter, r *http.Request) {
	hospitals, err := h.service.ListHospitals(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list hospitals")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": hospitals})
}

func (h *Handler) handleUpsertHospital(w http.ResponseWriter, r *http.Request) {
	var req models.CreateHospitalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Name == "" {
		writeError(w, apperr.InvalidRequest("name is required"))
		return
	}
	hospital, err := h.service.UpsertHospital(r.Context(), middleware.AuditContextFrom(r), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to upsert hospital")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hospital": hospital})
}

func (h *Handler) handleGetHospital(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hospital, err := h.service.GetHospital(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hospital": hospital})
}

func (h *Handler) handleUpdateHospital(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.UpdateHospitalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Name == "" {
		writeError(w, apperr.InvalidRequest("name is required"))
		return
	}
	hospital, err := h.service.UpdateHospital(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hospital": hospital})
}

func (h *Handler) handleDeleteHospital(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteHospital(r.Context(), middleware.AuditContextFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list departments")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": departments})
}

func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	department, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"department": department})
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		writeError(w, apperr.InvalidRequest("name is required"))
		return
	}
	department, err := h.service.UpdateDepartment(r.Context(), id, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"department": department})
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), middleware.AuditContextFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.ListDoctors(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list doctors")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": doctors})
}

func (h *Handler) handleCreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Name == "" || req.Hospital == "" || req.Department == "" {
		writeError(w, apperr.InvalidRequest("name, hospital, and department are required"))
		return
	}
	doctor, err := h.service.CreateDoctor(r.Context(), middleware.AuditContextFrom(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"doctor": doctor})
}

func (h *Handler) handleGetDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doctor, err := h.service.GetDoctor(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doctor": doctor})
}

func (h *Handler) handleUpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.CreateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidRequest("invalid request body"))
		return
	}
	if req.Name == "" || req.Hospital == "" || req.Department == "" {
		writeError(w, apperr.InvalidRequest("name, hospital, and department are required"))
		return
	}
	doctor, err := h.service.UpdateDoctor(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"doctor": doctor})
}

func (h *Handler) handleDeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteDoctor(r.Context(), middleware.AuditContextFrom(r), id); err != nil {
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
