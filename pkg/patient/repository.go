package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// patientModel stores the phone twice: the random-IV ciphertext for
// retrieval, and a keyed digest for equality lookups. The name is unique so
// that name-based visit operations resolve exactly one record.
type patientModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:id"`
	Name            string     `gorm:"column:name;uniqueIndex"`
	DateOfBirth     time.Time  `gorm:"column:date_of_birth"`
	Address         string     `gorm:"column:addr"`
	PhoneCiphertext string     `gorm:"column:phone_ciphertext"`
	PhoneDigest     string     `gorm:"column:phone_digest;uniqueIndex"`
	Email           string     `gorm:"column:email;uniqueIndex"`
	AccountID       *uuid.UUID `gorm:"type:uuid;column:account_id"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (patientModel) TableName() string { return "patients" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{})
}

type CreateInput struct {
	Name            string
	DateOfBirth     time.Time
	Address         string
	PhoneCiphertext string
	PhoneDigest     string
	Email           string
}

func (r *Repository) Create(ctx context.Context, input CreateInput) (uuid.UUID, error) {
	now := time.Now().UTC()
	row := patientModel{
		ID:              uuid.New(),
		Name:            input.Name,
		DateOfBirth:     input.DateOfBirth,
		Address:         input.Address,
		PhoneCiphertext: input.PhoneCiphertext,
		PhoneDigest:     input.PhoneDigest,
		Email:           input.Email,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Patient, string, error) {
	var row patientModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Patient{}, "", translate(err)
	}
	return buildPatient(&row), row.PhoneCiphertext, nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (models.Patient, error) {
	var row patientModel
	if err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error; err != nil {
		return models.Patient{}, translate(err)
	}
	return buildPatient(&row), nil
}

func (r *Repository) NameByID(ctx context.Context, id uuid.UUID) (string, error) {
	var row patientModel
	if err := r.db.WithContext(ctx).Select("name").First(&row, "id = ?", id).Error; err != nil {
		return "", translate(err)
	}
	return row.Name, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Patient, []string, error) {
	var rows []patientModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	patients := make([]models.Patient, 0, len(rows))
	ciphertexts := make([]string, 0, len(rows))
	for i := range rows {
		patients = append(patients, buildPatient(&rows[i]))
		ciphertexts = append(ciphertexts, rows[i].PhoneCiphertext)
	}
	return patients, ciphertexts, nil
}

type UpdateInput struct {
	Name            string
	DateOfBirth     time.Time
	Address         string
	PhoneCiphertext string
	PhoneDigest     string
	Email           string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) error {
	result := r.db.WithContext(ctx).Model(&patientModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":             input.Name,
		"date_of_birth":    input.DateOfBirth,
		"addr":             input.Address,
		"phone_ciphertext": input.PhoneCiphertext,
		"phone_digest":     input.PhoneDigest,
		"email":            input.Email,
		"updated_at":       time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&patientModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PhoneDigestExists reports whether another patient already holds this phone
// digest. excludeID may be uuid.Nil.
func (r *Repository) PhoneDigestExists(ctx context.Context, digest string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&patientModel{}).Where("phone_digest = ?", digest)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&patientModel{}).Where("name = ?", name)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&patientModel{}).Where("email = ?", email)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetAccountID is write-once: the update applies only while account_id is
// still unset. An already-populated row is left untouched.
func (r *Repository) SetAccountID(ctx context.Context, id, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&patientModel{}).
		Where("id = ? AND account_id IS NULL", id).
		Update("account_id", accountID).Error
}

func buildPatient(row *patientModel) models.Patient {
	return models.Patient{
		ID:          row.ID,
		Name:        row.Name,
		DateOfBirth: row.DateOfBirth,
		Address:     row.Address,
		Email:       row.Email,
		AccountID:   row.AccountID,
		CreatedAt:   row.CreatedAt,
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
