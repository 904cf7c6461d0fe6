package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/models"
)

type fakePairStore struct {
	hospitals   map[string]uuid.UUID
	departments map[string]uuid.UUID
	links       map[[2]uuid.UUID]bool
}

func (f *fakePairStore) HospitalIDByName(_ context.Context, name string) (uuid.UUID, error) {
	id, ok := f.hospitals[name]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (f *fakePairStore) DepartmentIDByName(_ context.Context, name string) (uuid.UUID, error) {
	id, ok := f.departments[name]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

func (f *fakePairStore) PairLinked(_ context.Context, hospitalID, departmentID uuid.UUID) (bool, error) {
	return f.links[[2]uuid.UUID{hospitalID, departmentID}], nil
}

func TestValidatePair(t *testing.T) {
	hospitalID := uuid.New()
	cardiologyID := uuid.New()
	neurologyID := uuid.New()

	store := &fakePairStore{
		hospitals:   map[string]uuid.UUID{"City General": hospitalID},
		departments: map[string]uuid.UUID{"Cardiology": cardiologyID, "Neurology": neurologyID},
		links:       map[[2]uuid.UUID]bool{{hospitalID, cardiologyID}: true},
	}
	validator := NewValidator(store)
	ctx := context.Background()

	hid, did, linked, err := validator.ValidatePair(ctx, "City General", "Cardiology")
	if err != nil {
		t.Fatalf("validate pair: %v", err)
	}
	if !linked {
		t.Fatal("expected linked pair")
	}
	if hid != hospitalID || did != cardiologyID {
		t.Fatal("resolved ids do not match store")
	}

	// Both names exist but the hospital does not carry the department.
	_, _, linked, err = validator.ValidatePair(ctx, "City General", "Neurology")
	if err != nil {
		t.Fatalf("validate unlinked pair: %v", err)
	}
	if linked {
		t.Fatal("expected unlinked pair")
	}

	_, _, _, err = validator.ValidatePair(ctx, "Nowhere", "Cardiology")
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("expected not-found for unknown hospital, got %v", err)
	}

	_, _, _, err = validator.ValidatePair(ctx, "City General", "Nothing")
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("expected not-found for unknown department, got %v", err)
	}
}

func TestValidateDoctorAssignment(t *testing.T) {
	hospitalID := uuid.New()
	departmentID := uuid.New()
	validator := NewValidator(nil)

	doctor := models.Doctor{ID: uuid.New(), Name: "Dr. Rao", HospitalID: hospitalID, DepartmentID: departmentID}

	if !validator.ValidateDoctorAssignment(doctor, hospitalID, departmentID) {
		t.Fatal("expected assignment to validate")
	}
	if validator.ValidateDoctorAssignment(doctor, uuid.New(), departmentID) {
		t.Fatal("expected mismatch on hospital")
	}
	if validator.ValidateDoctorAssignment(doctor, hospitalID, uuid.New()) {
		t.Fatal("expected mismatch on department")
	}
}
