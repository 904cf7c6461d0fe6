package visit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/directory"
	"github.com/meridian-health/hms/pkg/patient"
)

type fakeStore struct {
	visits []models.Visit
}

func (f *fakeStore) Create(_ context.Context, record models.Visit) error {
	f.visits = append(f.visits, record)
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (models.Visit, error) {
	for _, v := range f.visits {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Visit{}, ErrNotFound
}

func (f *fakeStore) List(_ context.Context) ([]models.Visit, error) {
	return append([]models.Visit(nil), f.visits...), nil
}

func (f *fakeStore) ListForPatient(_ context.Context, patientID uuid.UUID) ([]models.Visit, error) {
	var out []models.Visit
	for _, v := range f.visits {
		if v.PatientID != nil && *v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestForPatient(_ context.Context, patientID uuid.UUID) (models.Visit, error) {
	for i := len(f.visits) - 1; i >= 0; i-- {
		v := f.visits[i]
		if v.PatientID != nil && *v.PatientID == patientID {
			return v, nil
		}
	}
	return models.Visit{}, ErrNotFound
}

func (f *fakeStore) ActiveForPatient(_ context.Context, patientID uuid.UUID) (models.Visit, error) {
	for i := len(f.visits) - 1; i >= 0; i-- {
		v := f.visits[i]
		if v.PatientID != nil && *v.PatientID == patientID && v.Status != models.StatusDischarged {
			return v, nil
		}
	}
	return models.Visit{}, ErrNotFound
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.VisitStatus) error {
	for i := range f.visits {
		if f.visits[i].ID == id {
			f.visits[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	for i := range f.visits {
		if f.visits[i].ID == id {
			f.visits = append(f.visits[:i], f.visits[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type fakeDirectory struct {
	hospitals   map[string]models.Hospital
	departments map[string]models.Department
	doctors     map[string]models.Doctor
}

func (f *fakeDirectory) HospitalIDByName(_ context.Context, name string) (uuid.UUID, error) {
	h, ok := f.hospitals[name]
	if !ok {
		return uuid.Nil, directory.ErrNotFound
	}
	return h.ID, nil
}

func (f *fakeDirectory) DepartmentIDByName(_ context.Context, name string) (uuid.UUID, error) {
	d, ok := f.departments[name]
	if !ok {
		return uuid.Nil, directory.ErrNotFound
	}
	return d.ID, nil
}

func (f *fakeDirectory) DoctorByName(_ context.Context, name string) (models.Doctor, error) {
	d, ok := f.doctors[name]
	if !ok {
		return models.Doctor{}, directory.ErrNotFound
	}
	return d, nil
}

func (f *fakeDirectory) GetHospital(_ context.Context, id uuid.UUID) (models.Hospital, error) {
	for _, h := range f.hospitals {
		if h.ID == id {
			return h, nil
		}
	}
	return models.Hospital{}, directory.ErrNotFound
}

func (f *fakeDirectory) GetDepartment(_ context.Context, id uuid.UUID) (models.Department, error) {
	for _, d := range f.departments {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Department{}, directory.ErrNotFound
}

func (f *fakeDirectory) GetDoctor(_ context.Context, id uuid.UUID) (models.Doctor, error) {
	for _, d := range f.doctors {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Doctor{}, directory.ErrNotFound
}

type fakePatients struct {
	patients map[string]models.Patient
}

func (f *fakePatients) GetByName(_ context.Context, name string) (models.Patient, error) {
	p, ok := f.patients[name]
	if !ok {
		return models.Patient{}, patient.ErrNotFound
	}
	return p, nil
}

func (f *fakePatients) NameByID(_ context.Context, id uuid.UUID) (string, error) {
	for _, p := range f.patients {
		if p.ID == id {
			return p.Name, nil
		}
	}
	return "", patient.ErrNotFound
}

type recordedAudit struct {
	action string
	entity string
}

type fakeRecorder struct {
	events    []recordedAudit
	onCreated func()
}

func (f *fakeRecorder) Created(_ context.Context, _ models.AuditContext, entity, _ string, _ map[string]interface{}) {
	f.events = append(f.events, recordedAudit{action: "create", entity: entity})
	if f.onCreated != nil {
		f.onCreated()
	}
}

func (f *fakeRecorder) Deleted(_ context.Context, _ models.AuditContext, entity, _ string, _ map[string]interface{}) {
	f.events = append(f.events, recordedAudit{action: "delete", entity: entity})
}

type fakeNotifier struct {
	recipients []string
	onDispatch func()
}

func (f *fakeNotifier) Dispatch(_ context.Context, _, _, recipient string) (string, error) {
	f.recipients = append(f.recipients, recipient)
	if f.onDispatch != nil {
		f.onDispatch()
	}
	return uuid.NewString(), nil
}

type fixture struct {
	service  *Service
	store    *fakeStore
	patients *fakePatients
	recorder *fakeRecorder
	notifier *fakeNotifier
}

func newFixture() *fixture {
	hospitalID := uuid.New()
	departmentID := uuid.New()
	otherDepartmentID := uuid.New()

	dir := &fakeDirectory{
		hospitals: map[string]models.Hospital{
			"City General": {ID: hospitalID, Name: "City General"},
		},
		departments: map[string]models.Department{
			"Cardiology": {ID: departmentID, Name: "Cardiology"},
			"Neurology":  {ID: otherDepartmentID, Name: "Neurology"},
		},
		doctors: map[string]models.Doctor{
			"Dr. Rao": {ID: uuid.New(), Name: "Dr. Rao", Active: true, HospitalID: hospitalID, DepartmentID: departmentID},
			"Dr. Sen": {ID: uuid.New(), Name: "Dr. Sen", Active: true, HospitalID: hospitalID, DepartmentID: otherDepartmentID},
		},
	}
	patients := &fakePatients{
		patients: map[string]models.Patient{
			"Asha": {ID: uuid.New(), Name: "Asha", Email: "asha@example.com"},
			"Ravi": {ID: uuid.New(), Name: "Ravi", Email: "ravi@example.com"},
		},
	}

	store := &fakeStore{}
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}
	service := NewService(store, dir, patients, directory.NewValidator(nil), recorder, notifier)
	return &fixture{service: service, store: store, patients: patients, recorder: recorder, notifier: notifier}
}

func createRequest(patientName string) models.CreateVisitRequest {
	return models.CreateVisitRequest{
		Patient:    patientName,
		Doctor:     "Dr. Rao",
		Hospital:   "City General",
		Department: "Cardiology",
	}
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	appErr, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected apperr, got %v", err)
	}
	return appErr.Kind
}

func TestCreateVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha"))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if view.Status != models.StatusWaiting {
		t.Fatalf("expected new visit to be waiting, got %q", view.Status)
	}
	if view.Patient != "Asha" || view.Doctor != "Dr. Rao" || view.Hospital != "City General" || view.Department != "Cardiology" {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(f.store.visits) != 1 {
		t.Fatalf("expected one stored visit, got %d", len(f.store.visits))
	}
	if len(f.notifier.recipients) != 1 || f.notifier.recipients[0] != "asha@example.com" {
		t.Fatalf("expected one admission notice to the patient, got %v", f.notifier.recipients)
	}
	if len(f.recorder.events) != 1 || f.recorder.events[0].entity != "visit" {
		t.Fatalf("expected one visit audit event, got %v", f.recorder.events)
	}
}

func TestCreateRejectsSecondActiveVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha"))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha")); kindOf(t, err) != apperr.KindConflictActiveVisit {
		t.Fatalf("expected active-visit conflict, got %v", err)
	}

	// Admission does not free the patient either.
	if _, err := f.service.UpdateStatusByPatient(ctx, "Asha", "admitted"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha")); kindOf(t, err) != apperr.KindConflictActiveVisit {
		t.Fatalf("expected active-visit conflict after admission, got %v", err)
	}

	// Another patient is unaffected.
	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Ravi")); err != nil {
		t.Fatalf("create visit for other patient: %v", err)
	}

	// Discharge frees the patient for a new visit.
	if _, err := f.service.UpdateStatusByID(ctx, first.ID, "discharged"); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha")); err != nil {
		t.Fatalf("create visit after discharge: %v", err)
	}
}

func TestCreateRejectsUnassignedDoctor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := createRequest("Asha")
	req.Doctor = "Dr. Sen" // works in Neurology, not Cardiology
	if _, err := f.service.Create(ctx, models.AuditContext{}, req); kindOf(t, err) != apperr.KindDoctorNotAssigned {
		t.Fatalf("expected doctor-not-assigned, got %v", err)
	}
	if len(f.store.visits) != 0 {
		t.Fatal("rejected visit must not be stored")
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		mutate func(*models.CreateVisitRequest)
	}{
		{"patient", func(r *models.CreateVisitRequest) { r.Patient = "Nobody" }},
		{"doctor", func(r *models.CreateVisitRequest) { r.Doctor = "Dr. Nobody" }},
		{"hospital", func(r *models.CreateVisitRequest) { r.Hospital = "Nowhere" }},
		{"department", func(r *models.CreateVisitRequest) { r.Department = "Nothing" }},
	} {
		req := createRequest("Asha")
		tc.mutate(&req)
		if _, err := f.service.Create(ctx, models.AuditContext{}, req); kindOf(t, err) != apperr.KindNotFound {
			t.Fatalf("%s: expected not-found, got %v", tc.name, err)
		}
	}
}

func TestUpdateStatusByPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.UpdateStatusByPatient(ctx, "Asha", "admitted"); kindOf(t, err) != apperr.KindNoActiveVisit {
		t.Fatalf("expected no-active-visit, got %v", err)
	}

	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha")); err != nil {
		t.Fatalf("create visit: %v", err)
	}

	view, err := f.service.UpdateStatusByPatient(ctx, "Asha", "admitted")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if view.Status != models.StatusAdmitted {
		t.Fatalf("expected admitted, got %q", view.Status)
	}

	if _, err := f.service.UpdateStatusByPatient(ctx, "Asha", "discharged"); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if _, err := f.service.UpdateStatusByPatient(ctx, "Asha", "admitted"); kindOf(t, err) != apperr.KindNoActiveVisit {
		t.Fatalf("expected no-active-visit after discharge, got %v", err)
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.service.UpdateStatusByID(ctx, uuid.New(), "released"); kindOf(t, err) != apperr.KindInvalidStatus {
		t.Fatalf("expected invalid-status, got %v", err)
	}
	if _, err := f.service.UpdateStatusByPatient(ctx, "Asha", "released"); kindOf(t, err) != apperr.KindInvalidStatus {
		t.Fatalf("expected invalid-status, got %v", err)
	}
}

func TestUpdateStatusUnknownVisit(t *testing.T) {
	f := newFixture()

	_, err := f.service.UpdateStatusByID(context.Background(), uuid.New(), "admitted")
	if kindOf(t, err) != apperr.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestViewRendersDeletedReferentsEmpty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha"))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	f.store.visits[0].DoctorID = nil

	got, err := f.service.Get(ctx, view.ID)
	if err != nil {
		t.Fatalf("get visit: %v", err)
	}
	if got.Doctor != "" {
		t.Fatalf("expected empty doctor for cleared reference, got %q", got.Doctor)
	}
	if got.Patient != "Asha" {
		t.Fatalf("remaining references must still resolve, got %+v", got)
	}
}

func TestDeleteVisit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha"))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}

	if err := f.service.Delete(ctx, models.AuditContext{}, view.ID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}
	if _, err := f.service.Get(ctx, view.ID); kindOf(t, err) != apperr.KindNotFound {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	if err := f.service.Delete(ctx, models.AuditContext{}, view.ID); kindOf(t, err) != apperr.KindNotFound {
		t.Fatalf("expected not-found for repeated delete, got %v", err)
	}

	var deletes int
	for _, e := range f.recorder.events {
		if e.action == "delete" {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("expected one delete audit event, got %d", deletes)
	}
}

func TestCreateVisitDispatchesOutsideAdmissionLock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ashaID := f.patients.patients["Asha"].ID

	// Audit and the admission notice must observe the patient's lock as
	// already released.
	lockFree := true
	check := func() {
		lock := f.service.patientLock(ashaID)
		if !lock.TryLock() {
			lockFree = false
			return
		}
		lock.Unlock()
	}
	f.recorder.onCreated = check
	f.notifier.onDispatch = check

	if _, err := f.service.Create(ctx, models.AuditContext{}, createRequest("Asha")); err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if len(f.recorder.events) == 0 || len(f.notifier.recipients) == 0 {
		t.Fatalf("expected audit and notification to fire")
	}
	if !lockFree {
		t.Fatalf("audit or notification ran while the admission lock was held")
	}
}
