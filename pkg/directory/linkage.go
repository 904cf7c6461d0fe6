package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/models"
)

// PairStore is the slice of the directory the validator needs: name
// resolution plus linkage membership.
type PairStore interface {
	HospitalIDByName(ctx context.Context, name string) (uuid.UUID, error)
	DepartmentIDByName(ctx context.Context, name string) (uuid.UUID, error)
	PairLinked(ctx context.Context, hospitalID, departmentID uuid.UUID) (bool, error)
}

// Validator answers whether a (hospital, department) pair is linked and
// whether a doctor belongs to a given pair.
type Validator struct {
	store PairStore
}

func NewValidator(store PairStore) *Validator {
	return &Validator{store: store}
}

// ValidatePair resolves both names and reports whether the pair exists in the
// linkage table. A name that fails to resolve surfaces as NotFound; it is
// never substituted with a default.
func (v *Validator) ValidatePair(ctx context.Context, hospitalName, departmentName string) (uuid.UUID, uuid.UUID, bool, error) {
	hospitalID, err := v.store.HospitalIDByName(ctx, hospitalName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, uuid.Nil, false, apperr.NotFound("hospital", hospitalName)
		}
		return uuid.Nil, uuid.Nil, false, err
	}
	departmentID, err := v.store.DepartmentIDByName(ctx, departmentName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, uuid.Nil, false, apperr.NotFound("department", departmentName)
		}
		return uuid.Nil, uuid.Nil, false, err
	}
	linked, err := v.store.PairLinked(ctx, hospitalID, departmentID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false, err
	}
	return hospitalID, departmentID, linked, nil
}

// ValidateDoctorAssignment reports whether the doctor's registered pair
// matches the stated one.
func (v *Validator) ValidateDoctorAssignment(doctor models.Doctor, hospitalID, departmentID uuid.UUID) bool {
	return doctor.HospitalID == hospitalID && doctor.DepartmentID == departmentID
}
