package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("directory record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type hospitalModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Name      string    `gorm:"column:name;uniqueIndex"`
	Address   string    `gorm:"column:addr"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (hospitalModel) TableName() string { return "hospitals" }

type departmentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Name      string    `gorm:"column:name;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (departmentModel) TableName() string { return "departments" }

// hospitalDepartmentModel holds the m:n relation between hospitals and
// departments, unique per pair.
type hospitalDepartmentModel struct {
	ID           int64     `gorm:"primaryKey;column:id"`
	HospitalID   uuid.UUID `gorm:"type:uuid;column:hospital_id;uniqueIndex:idx_hospital_department"`
	DepartmentID uuid.UUID `gorm:"type:uuid;column:department_id;uniqueIndex:idx_hospital_department"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (hospitalDepartmentModel) TableName() string { return "hospital_departments" }

type doctorModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Name         string    `gorm:"column:name;uniqueIndex"`
	Active       bool      `gorm:"column:active"`
	HospitalID   uuid.UUID `gorm:"type:uuid;column:hospital_id;index"`
	DepartmentID uuid.UUID `gorm:"type:uuid;column:department_id;index"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (doctorModel) TableName() string { return "doctors" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&hospitalModel{},
		&departmentModel{},
		&hospitalDepartmentModel{},
		&doctorModel{},
	)
}

// Hospitals

func (r *Repository) GetOrCreateHospital(ctx context.Context, name, address string) (models.Hospital, bool, error) {
	var row hospitalModel
	err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if err == nil {
		return buildHospital(&row), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Hospital{}, false, err
	}
	row = hospitalModel{
		ID:        uuid.New(),
		Name:      name,
		Address:   address,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Hospital{}, false, err
	}
	return buildHospital(&row), true, nil
}

func (r *Repository) GetHospital(ctx context.Context, id uuid.UUID) (models.Hospital, error) {
	var row hospitalModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Hospital{}, translate(err)
	}
	return buildHospital(&row), nil
}

func (r *Repository) HospitalIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var row hospitalModel
	if err := r.db.WithContext(ctx).Select("id").First(&row, "name = ?", name).Error; err != nil {
		return uuid.Nil, translate(err)
	}
	return row.ID, nil
}

func (r *Repository) ListHospitals(ctx context.Context) ([]models.Hospital, error) {
	var rows []hospitalModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	hospitals := make([]models.Hospital, 0, len(rows))
	for i := range rows {
		hospitals = append(hospitals, buildHospital(&rows[i]))
	}
	return hospitals, nil
}

func (r *Repository) UpdateHospital(ctx context.Context, id uuid.UUID, name, address string) (models.Hospital, error) {
	result := r.db.WithContext(ctx).Model(&hospitalModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name": name,
		"addr": address,
	})
	if result.Error != nil {
		return models.Hospital{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Hospital{}, ErrNotFound
	}
	return r.GetHospital(ctx, id)
}

// DeleteHospital hard-deletes the hospital together with its linkage rows and
// dependent doctors.
func (r *Repository) DeleteHospital(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&hospitalModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&hospitalDepartmentModel{}, "hospital_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&doctorModel{}, "hospital_id = ?", id).Error
	})
}

// Departments

func (r *Repository) GetOrCreateDepartment(ctx context.Context, name string) (models.Department, bool, error) {
	var row departmentModel
	err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if err == nil {
		return models.Department{ID: row.ID, Name: row.Name}, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Department{}, false, err
	}
	row = departmentModel{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Department{}, false, err
	}
	return models.Department{ID: row.ID, Name: row.Name}, true, nil
}

func (r *Repository) GetDepartment(ctx context.Context, id uuid.UUID) (models.Department, error) {
	var row departmentModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Department{}, translate(err)
	}
	return models.Department{ID: row.ID, Name: row.Name}, nil
}

func (r *Repository) DepartmentIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	var row departmentModel
	if err := r.db.WithContext(ctx).Select("id").First(&row, "name = ?", name).Error; err != nil {
		return uuid.Nil, translate(err)
	}
	return row.ID, nil
}

func (r *Repository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var rows []departmentModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	departments := make([]models.Department, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, models.Department{ID: row.ID, Name: row.Name})
	}
	return departments, nil
}

func (r *Repository) UpdateDepartment(ctx context.Context, id uuid.UUID, name string) (models.Department, error) {
	result := r.db.WithContext(ctx).Model(&departmentModel{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return models.Department{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Department{}, ErrNotFound
	}
	return r.GetDepartment(ctx, id)
}

func (r *Repository) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&departmentModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&hospitalDepartmentModel{}, "department_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&doctorModel{}, "department_id = ?", id).Error
	})
}

// Linkage

func (r *Repository) LinkDepartment(ctx context.Context, hospitalID, departmentID uuid.UUID) error {
	linked, err := r.PairLinked(ctx, hospitalID, departmentID)
	if err != nil {
		return err
	}
	if linked {
		return nil
	}
	row := hospitalDepartmentModel{
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		CreatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *Repository) PairLinked(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&hospitalDepartmentModel{}).
		Where("hospital_id = ? AND department_id = ?", hospitalID, departmentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) LinkedDepartments(ctx context.Context, hospitalID uuid.UUID) ([]models.Department, error) {
	var rows []departmentModel
	err := r.db.WithContext(ctx).
		Joins("JOIN hospital_departments hd ON hd.department_id = departments.id").
		Where("hd.hospital_id = ?", hospitalID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	departments := make([]models.Department, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, models.Department{ID: row.ID, Name: row.Name})
	}
	return departments, nil
}

// Doctors

func (r *Repository) CreateDoctor(ctx context.Context, name string, hospitalID, departmentID uuid.UUID) (models.Doctor, error) {
	now := time.Now().UTC()
	row := doctorModel{
		ID:           uuid.New(),
		Name:         name,
		Active:       true,
		HospitalID:   hospitalID,
		DepartmentID: departmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Doctor{}, err
	}
	return buildDoctor(&row), nil
}

func (r *Repository) GetDoctor(ctx context.Context, id uuid.UUID) (models.Doctor, error) {
	var row doctorModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.Doctor{}, translate(err)
	}
	return buildDoctor(&row), nil
}

func (r *Repository) DoctorByName(ctx context.Context, name string) (models.Doctor, error) {
	var row doctorModel
	if err := r.db.WithContext(ctx).First(&row, "name = ?", name).Error; err != nil {
		return models.Doctor{}, translate(err)
	}
	return buildDoctor(&row), nil
}

func (r *Repository) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	var rows []doctorModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	doctors := make([]models.Doctor, 0, len(rows))
	for i := range rows {
		doctors = append(doctors, buildDoctor(&rows[i]))
	}
	return doctors, nil
}

func (r *Repository) UpdateDoctor(ctx context.Context, id uuid.UUID, name string, hospitalID, departmentID uuid.UUID) (models.Doctor, error) {
	result := r.db.WithContext(ctx).Model(&doctorModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"name":          name,
		"hospital_id":   hospitalID,
		"department_id": departmentID,
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return models.Doctor{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Doctor{}, ErrNotFound
	}
	return r.GetDoctor(ctx, id)
}

func (r *Repository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&doctorModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildHospital(row *hospitalModel) models.Hospital {
	return models.Hospital{ID: row.ID, Name: row.Name, Address: row.Address}
}

func buildDoctor(row *doctorModel) models.Doctor {
	return models.Doctor{
		ID:           row.ID,
		Name:         row.Name,
		Active:       row.Active,
		HospitalID:   row.HospitalID,
		DepartmentID: row.DepartmentID,
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
