package visit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/directory"
	"github.com/meridian-health/hms/pkg/observability/metrics"
	"github.com/meridian-health/hms/pkg/patient"
)

// Store is the persistence surface the state machine drives. *Repository is
// the production implementation.
type Store interface {
	Create(ctx context.Context, record models.Visit) error
	Get(ctx context.Context, id uuid.UUID) (models.Visit, error)
	List(ctx context.Context) ([]models.Visit, error)
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]models.Visit, error)
	LatestForPatient(ctx context.Context, patientID uuid.UUID) (models.Visit, error)
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (models.Visit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VisitStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// DirectoryStore resolves doctor/hospital/department references, by name for
// creation and by id for display. directory.Repository satisfies it.
type DirectoryStore interface {
	HospitalIDByName(ctx context.Context, name string) (uuid.UUID, error)
	DepartmentIDByName(ctx context.Context, name string) (uuid.UUID, error)
	DoctorByName(ctx context.Context, name string) (models.Doctor, error)
	GetHospital(ctx context.Context, id uuid.UUID) (models.Hospital, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (models.Department, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (models.Doctor, error)
}

// PatientStore resolves patient references. patient.Repository satisfies it.
type PatientStore interface {
	GetByName(ctx context.Context, name string) (models.Patient, error)
	NameByID(ctx context.Context, id uuid.UUID) (string, error)
}

// AssignmentValidator checks a doctor against a stated (hospital,
// department) pair. directory.Validator satisfies it.
type AssignmentValidator interface {
	ValidateDoctorAssignment(doctor models.Doctor, hospitalID, departmentID uuid.UUID) bool
}

// AuditRecorder receives create/delete notifications for tracked entities.
type AuditRecorder interface {
	Created(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
	Deleted(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
}

// Notifier dispatches a fire-and-forget email task and returns its task id.
type Notifier interface {
	Dispatch(ctx context.Context, subject, body, recipient string) (string, error)
}

// Service is the visit state machine. All status changes flow through it,
// and the single-active-visit rule is serialized per patient.
type Service struct {
	store     Store
	dir       DirectoryStore
	patients  PatientStore
	validator AssignmentValidator
	recorder  AuditRecorder
	notifier  Notifier

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(store Store, dir DirectoryStore, patients PatientStore, validator AssignmentValidator, recorder AuditRecorder, notifier Notifier) *Service {
	return &Service{
		store:     store,
		dir:       dir,
		patients:  patients,
		validator: validator,
		recorder:  recorder,
		notifier:  notifier,
		locks:     map[uuid.UUID]*sync.Mutex{},
	}
}

// patientLock serializes visit creation and active-visit updates for one
// patient, closing the check-then-act race on the single-active-visit rule.
// Entries are never evicted; the map is bounded by the number of distinct
// patients this process has served.
func (s *Service) patientLock(patientID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[patientID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[patientID] = lock
	}
	return lock
}

// Create opens a new visit for the named patient. The patient's most recent
// visit must be discharged (or absent), and the doctor must be assigned to
// the stated hospital and department.
func (s *Service) Create(ctx context.Context, actx models.AuditContext, req models.CreateVisitRequest) (models.VisitView, error) {
	record, err := s.patients.GetByName(ctx, req.Patient)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "patient", req.Patient)
	}
	doctor, err := s.dir.DoctorByName(ctx, req.Doctor)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "doctor", req.Doctor)
	}
	hospitalID, err := s.dir.HospitalIDByName(ctx, req.Hospital)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "hospital", req.Hospital)
	}
	departmentID, err := s.dir.DepartmentIDByName(ctx, req.Department)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "department", req.Department)
	}

	created, err := s.admit(ctx, record.ID, doctor, hospitalID, departmentID, req)
	if err != nil {
		return models.VisitView{}, err
	}
	metrics.VisitCreated()

	s.recorder.Created(ctx, actx, "visit", created.ID.String(), map[string]interface{}{
		"patient":    req.Patient,
		"doctor":     req.Doctor,
		"hospital":   req.Hospital,
		"department": req.Department,
	})
	s.sendAdmissionNotice(ctx, record, req)

	return models.VisitView{
		ID:         created.ID,
		Timestamp:  created.Timestamp,
		Status:     created.Status,
		Patient:    req.Patient,
		Doctor:     req.Doctor,
		Hospital:   req.Hospital,
		Department: req.Department,
	}, nil
}

// admit holds the patient's lock across the latest-visit check and the
// insert; audit and notification run after the lock is released so broker
// latency stays out of the admission critical section.
func (s *Service) admit(ctx context.Context, patientID uuid.UUID, doctor models.Doctor, hospitalID, departmentID uuid.UUID, req models.CreateVisitRequest) (models.Visit, error) {
	lock := s.patientLock(patientID)
	lock.Lock()
	defer lock.Unlock()

	latest, err := s.store.LatestForPatient(ctx, patientID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return models.Visit{}, err
	}
	if err == nil && latest.Status != models.StatusDischarged {
		metrics.VisitConflict()
		return models.Visit{}, apperr.ConflictActiveVisit(req.Patient)
	}

	if !s.validator.ValidateDoctorAssignment(doctor, hospitalID, departmentID) {
		return models.Visit{}, apperr.DoctorNotAssigned(req.Doctor, req.Hospital, req.Department)
	}

	created := models.Visit{
		ID:           uuid.New(),
		Timestamp:    time.Now().UTC(),
		Status:       models.StatusWaiting,
		PatientID:    &patientID,
		DoctorID:     &doctor.ID,
		HospitalID:   &hospitalID,
		DepartmentID: &departmentID,
	}
	if err := s.store.Create(ctx, created); err != nil {
		return models.Visit{}, err
	}
	return created, nil
}

func (s *Service) sendAdmissionNotice(ctx context.Context, record models.Patient, req models.CreateVisitRequest) {
	if s.notifier == nil || record.Email == "" {
		return
	}
	body := fmt.Sprintf("Hello %s, your visit at %s (%s) with %s has been registered. You are currently waiting.",
		record.Name, req.Hospital, req.Department, req.Doctor)
	if _, err := s.notifier.Dispatch(ctx, "Visit registered", body, record.Email); err != nil {
		logger.Log.WithError(err).WithField("recipient", record.Email).Error("Failed to dispatch visit notice")
	}
}

// UpdateStatusByID sets a specific visit's status.
func (s *Service) UpdateStatusByID(ctx context.Context, id uuid.UUID, status string) (models.VisitView, error) {
	parsed, err := models.ParseVisitStatus(status)
	if err != nil {
		return models.VisitView{}, apperr.InvalidStatus(status)
	}
	if err := s.store.UpdateStatus(ctx, id, parsed); err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.VisitView{}, apperr.NotFound("visit", id.String())
		}
		return models.VisitView{}, err
	}
	metrics.VisitStatusChanged()
	return s.Get(ctx, id)
}

// UpdateStatusByPatient applies the status to the named patient's current
// active visit.
func (s *Service) UpdateStatusByPatient(ctx context.Context, patientName, status string) (models.VisitView, error) {
	parsed, err := models.ParseVisitStatus(status)
	if err != nil {
		return models.VisitView{}, apperr.InvalidStatus(status)
	}
	record, err := s.patients.GetByName(ctx, patientName)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "patient", patientName)
	}

	lock := s.patientLock(record.ID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.ActiveForPatient(ctx, record.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.VisitView{}, apperr.NoActiveVisit(patientName)
		}
		return models.VisitView{}, err
	}
	if err := s.store.UpdateStatus(ctx, active.ID, parsed); err != nil {
		return models.VisitView{}, err
	}
	metrics.VisitStatusChanged()
	return s.Get(ctx, active.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.VisitView, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.VisitView{}, apperr.NotFound("visit", id.String())
		}
		return models.VisitView{}, err
	}
	return s.buildView(ctx, record), nil
}

func (s *Service) List(ctx context.Context) ([]models.VisitView, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, records), nil
}

// ListForPatient returns the named patient's visits most recent first.
func (s *Service) ListForPatient(ctx context.Context, patientName string) ([]models.VisitView, error) {
	record, err := s.patients.GetByName(ctx, patientName)
	if err != nil {
		return nil, resolveErr(err, "patient", patientName)
	}
	records, err := s.store.ListForPatient(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, records), nil
}

// ActiveForPatient returns the named patient's current non-discharged visit.
func (s *Service) ActiveForPatient(ctx context.Context, patientName string) (models.VisitView, error) {
	record, err := s.patients.GetByName(ctx, patientName)
	if err != nil {
		return models.VisitView{}, resolveErr(err, "patient", patientName)
	}
	active, err := s.store.ActiveForPatient(ctx, record.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.VisitView{}, apperr.NoActiveVisit(patientName)
		}
		return models.VisitView{}, err
	}
	return s.buildView(ctx, active), nil
}

func (s *Service) Delete(ctx context.Context, actx models.AuditContext, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("visit", id.String())
		}
		return err
	}
	s.recorder.Deleted(ctx, actx, "visit", id.String(), nil)
	return nil
}

// buildView resolves back-references to display names. A reference whose
// referent has been deleted renders as an empty field.
func (s *Service) buildView(ctx context.Context, record models.Visit) models.VisitView {
	view := models.VisitView{
		ID:        record.ID,
		Timestamp: record.Timestamp,
		Status:    record.Status,
	}
	if record.PatientID != nil {
		if name, err := s.patients.NameByID(ctx, *record.PatientID); err == nil {
			view.Patient = name
		}
	}
	if record.DoctorID != nil {
		if doctor, err := s.dir.GetDoctor(ctx, *record.DoctorID); err == nil {
			view.Doctor = doctor.Name
		}
	}
	if record.HospitalID != nil {
		if hospital, err := s.dir.GetHospital(ctx, *record.HospitalID); err == nil {
			view.Hospital = hospital.Name
		}
	}
	if record.DepartmentID != nil {
		if department, err := s.dir.GetDepartment(ctx, *record.DepartmentID); err == nil {
			view.Department = department.Name
		}
	}
	return view
}

func (s *Service) buildViews(ctx context.Context, records []models.Visit) []models.VisitView {
	views := make([]models.VisitView, 0, len(records))
	for _, record := range records {
		views = append(views, s.buildView(ctx, record))
	}
	return views
}

func resolveErr(err error, entity, value string) error {
	if errors.Is(err, directory.ErrNotFound) || errors.Is(err, patient.ErrNotFound) {
		return apperr.NotFound(entity, value)
	}
	return err
}
