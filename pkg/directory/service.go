package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/observability/metrics"
	"github.com/redis/go-redis/v9"
)

// AuditRecorder receives create/delete notifications for tracked entities.
type AuditRecorder interface {
	Created(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
	Deleted(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
}

// VisitRefCleaner nulls visit back-references when a directory entity is
// hard-deleted.
type VisitRefCleaner interface {
	ClearHospitalRefs(ctx context.Context, hospitalID uuid.UUID) error
	ClearDepartmentRefs(ctx context.Context, departmentID uuid.UUID) error
	ClearDoctorRefs(ctx context.Context, doctorID uuid.UUID) error
}

type Service struct {
	repo      *Repository
	validator *Validator
	cache     *redis.Client
	cacheTTL  time.Duration
	recorder  AuditRecorder
	visits    VisitRefCleaner
}

func NewService(repo *Repository, validator *Validator, cache *redis.Client, cacheTTL time.Duration, recorder AuditRecorder, visits VisitRefCleaner) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		recorder:  recorder,
		visits:    visits,
	}
}

// Hospitals

// UpsertHospital follows the get-or-create pattern: a new hospital is linked
// to every listed department, an existing one only gains the departments it
// is not yet linked to.
func (s *Service) UpsertHospital(ctx context.Context, actx models.AuditContext, req models.CreateHospitalRequest) (models.Hospital, error) {
	hospital, created, err := s.repo.GetOrCreateHospital(ctx, req.Name, req.Address)
	if err != nil {
		return models.Hospital{}, err
	}
	for _, departmentName := range req.Departments {
		department, _, err := s.repo.GetOrCreateDepartment(ctx, departmentName)
		if err != nil {
			return models.Hospital{}, err
		}
		if err := s.repo.LinkDepartment(ctx, hospital.ID, department.ID); err != nil {
			return models.Hospital{}, err
		}
	}
	if created {
		s.recorder.Created(ctx, actx, "hospital", hospital.ID.String(), map[string]interface{}{
			"name":        hospital.Name,
			"departments": req.Departments,
		})
	}
	return hospital, nil
}

func (s *Service) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	var cached []models.Hospital
	if s.fromCache(ctx, "hospital_list", &cached) {
		return cached, nil
	}
	hospitals, err := s.repo.ListHospitals(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, "hospital_list", hospitals)
	return hospitals, nil
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (models.Hospital, error) {
	key := fmt.Sprintf("hospital_%s", id)
	var cached models.Hospital
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	hospital, err := s.repo.GetHospital(ctx, id)
	if err != nil {
		return models.Hospital{}, notFound(err, "hospital", id.String())
	}
	s.toCache(ctx, key, hospital)
	return hospital, nil
}

func (s *Service) UpdateHospital(ctx context.Context, id uuid.UUID, req models.UpdateHospitalRequest) (models.Hospital, error) {
	hospital, err := s.repo.UpdateHospital(ctx, id, req.Name, req.Address)
	if err != nil {
		return models.Hospital{}, notFound(err, "hospital", id.String())
	}
	return hospital, nil
}

func (s *Service) DeleteHospital(ctx context.Context, actx models.AuditContext, id uuid.UUID) error {
	hospital, err := s.repo.GetHospital(ctx, id)
	if err != nil {
		return notFound(err, "hospital", id.String())
	}
	if err := s.repo.DeleteHospital(ctx, id); err != nil {
		return notFound(err, "hospital", id.String())
	}
	if err := s.visits.ClearHospitalRefs(ctx, id); err != nil {
		logger.Log.WithError(err).WithField("hospital_id", id).Error("Failed to clear visit references")
	}
	s.recorder.Deleted(ctx, actx, "hospital", id.String(), map[string]interface{}{"name": hospital.Name})
	return nil
}

// Departments

func (s *Service) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var cached []models.Department
	if s.fromCache(ctx, "department_list", &cached) {
		return cached, nil
	}
	departments, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, "department_list", departments)
	return departments, nil
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (models.Department, error) {
	key := fmt.Sprintf("department_%s", id)
	var cached models.Department
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	department, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		return models.Department{}, notFound(err, "department", id.String())
	}
	s.toCache(ctx, key, department)
	return department, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id uuid.UUID, name string) (models.Department, error) {
	department, err := s.repo.UpdateDepartment(ctx, id, name)
	if err != nil {
		return models.Department{}, notFound(err, "department", id.String())
	}
	return department, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, actx models.AuditContext, id uuid.UUID) error {
	department, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		return notFound(err, "department", id.String())
	}
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		return notFound(err, "department", id.String())
	}
	if err := s.visits.ClearDepartmentRefs(ctx, id); err != nil {
		logger.Log.WithError(err).WithField("department_id", id).Error("Failed to clear visit references")
	}
	s.recorder.Deleted(ctx, actx, "department", id.String(), map[string]interface{}{"name": department.Name})
	return nil
}

// Doctors

// CreateDoctor registers a doctor under a (hospital, department) pair that
// must already be linked.
func (s *Service) CreateDoctor(ctx context.Context, actx models.AuditContext, req models.CreateDoctorRequest) (models.Doctor, error) {
	hospitalID, departmentID, valid, err := s.validator.ValidatePair(ctx, req.Hospital, req.Department)
	if err != nil {
		return models.Doctor{}, err
	}
	if !valid {
		return models.Doctor{}, apperr.LinkageInvalid(req.Hospital, req.Department)
	}
	doctor, err := s.repo.CreateDoctor(ctx, req.Name, hospitalID, departmentID)
	if err != nil {
		return models.Doctor{}, err
	}
	s.recorder.Created(ctx, actx, "doctor", doctor.ID.String(), map[string]interface{}{
		"name":       doctor.Name,
		"hospital":   req.Hospital,
		"department": req.Department,
	})
	return doctor, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var cached []models.Doctor
	if s.fromCache(ctx, "doctor_list", &cached) {
		return cached, nil
	}
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, "doctor_list", doctors)
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (models.Doctor, error) {
	key := fmt.Sprintf("doctor_%s", id)
	var cached models.Doctor
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}
	doctor, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return models.Doctor{}, notFound(err, "doctor", id.String())
	}
	s.toCache(ctx, key, doctor)
	return doctor, nil
}

// UpdateDoctor re-validates the linkage pair the same way create does.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req models.CreateDoctorRequest) (models.Doctor, error) {
	hospitalID, departmentID, valid, err := s.validator.ValidatePair(ctx, req.Hospital, req.Department)
	if err != nil {
		return models.Doctor{}, err
	}
	if !valid {
		return models.Doctor{}, apperr.LinkageInvalid(req.Hospital, req.Department)
	}
	doctor, err := s.repo.UpdateDoctor(ctx, id, req.Name, hospitalID, departmentID)
	if err != nil {
		return models.Doctor{}, notFound(err, "doctor", id.String())
	}
	return doctor, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, actx models.AuditContext, id uuid.UUID) error {
	doctor, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return notFound(err, "doctor", id.String())
	}
	if err := s.repo.DeleteDoctor(ctx, id); err != nil {
		return notFound(err, "doctor", id.String())
	}
	if err := s.visits.ClearDoctorRefs(ctx, id); err != nil {
		logger.Log.WithError(err).WithField("doctor_id", id).Error("Failed to clear visit references")
	}
	s.recorder.Deleted(ctx, actx, "doctor", id.String(), map[string]interface{}{"name": doctor.Name})
	return nil
}

// Read cache. Entries live for the configured TTL; writes do not invalidate,
// so reads may serve data up to one TTL stale.

func (s *Service) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		metrics.DirectoryCacheMiss()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("Cache entry corrupt")
		return false
	}
	metrics.DirectoryCacheHit()
	return true
}

func (s *Service) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func notFound(err error, entity, value string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound(entity, value)
	}
	return err
}
