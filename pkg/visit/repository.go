package visit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("visit record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// visitModel keeps nullable references: deleting a referent nulls the column
// instead of blocking or cascading.
type visitModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;column:id"`
	Timestamp    time.Time  `gorm:"column:timestamp;index"`
	Status       string     `gorm:"column:status"`
	PatientID    *uuid.UUID `gorm:"type:uuid;column:patient_id;index"`
	DoctorID     *uuid.UUID `gorm:"type:uuid;column:doctor_id"`
	HospitalID   *uuid.UUID `gorm:"type:uuid;column:hospital_id"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;column:department_id"`
}

func (visitModel) TableName() string { return "visits" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&visitModel{})
}

func (r *Repository) Create(ctx context.Context, record models.Visit) error {
	row := visitModel{
		ID:           record.ID,
		Timestamp:    record.Timestamp,
		Status:       string(record.Status),
		PatientID:    record.PatientID,
		DoctorID:     record.DoctorID,
		HospitalID:   record.HospitalID,
		DepartmentID: record.DepartmentID,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Visit, error) {
	var row visitModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Visit{}, translate(err)
	}
	return buildVisit(&row), nil
}

func (r *Repository) List(ctx context.Context) ([]models.Visit, error) {
	var rows []visitModel
	if err := r.db.WithContext(ctx).Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return buildVisits(rows), nil
}

// ListForPatient returns the patient's visits most recent first.
func (r *Repository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]models.Visit, error) {
	var rows []visitModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("timestamp DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return buildVisits(rows), nil
}

// LatestForPatient returns the patient's most recent visit by timestamp.
func (r *Repository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (models.Visit, error) {
	var row visitModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("timestamp DESC").
		First(&row).Error
	if err != nil {
		return models.Visit{}, translate(err)
	}
	return buildVisit(&row), nil
}

// ActiveForPatient returns the patient's most recent visit whose status is
// not discharged.
func (r *Repository) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (models.Visit, error) {
	var row visitModel
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status <> ?", patientID, string(models.StatusDischarged)).
		Order("timestamp DESC").
		First(&row).Error
	if err != nil {
		return models.Visit{}, translate(err)
	}
	return buildVisit(&row), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VisitStatus) error {
	result := r.db.WithContext(ctx).Model(&visitModel{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&visitModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reference clearing, invoked when a referent entity is hard-deleted.

func (r *Repository) ClearPatientRefs(ctx context.Context, patientID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&visitModel{}).
		Where("patient_id = ?", patientID).
		Update("patient_id", nil).Error
}

func (r *Repository) ClearDoctorRefs(ctx context.Context, doctorID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&visitModel{}).
		Where("doctor_id = ?", doctorID).
		Update("doctor_id", nil).Error
}

func (r *Repository) ClearHospitalRefs(ctx context.Context, hospitalID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&visitModel{}).
		Where("hospital_id = ?", hospitalID).
		Update("hospital_id", nil).Error
}

func (r *Repository) ClearDepartmentRefs(ctx context.Context, departmentID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&visitModel{}).
		Where("department_id = ?", departmentID).
		Update("department_id", nil).Error
}

func buildVisit(row *visitModel) models.Visit {
	return models.Visit{
		ID:           row.ID,
		Timestamp:    row.Timestamp,
		Status:       models.VisitStatus(row.Status),
		PatientID:    row.PatientID,
		DoctorID:     row.DoctorID,
		HospitalID:   row.HospitalID,
		DepartmentID: row.DepartmentID,
	}
}

func buildVisits(rows []visitModel) []models.Visit {
	visits := make([]models.Visit, 0, len(rows))
	for i := range rows {
		visits = append(visits, buildVisit(&rows[i]))
	}
	return visits
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
