package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/apperr"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
)

// Store is the persistence surface the service drives. *Repository is the
// production implementation.
type Store interface {
	Create(ctx context.Context, input CreateInput) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (models.Patient, string, error)
	List(ctx context.Context) ([]models.Patient, []string, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) error
	Delete(ctx context.Context, id uuid.UUID) error
	NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	PhoneDigestExists(ctx context.Context, digest string, excludeID uuid.UUID) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	SetAccountID(ctx context.Context, id, accountID uuid.UUID) error
}

// AccountProvisioner attaches a user account to a newly created patient.
type AccountProvisioner interface {
	ProvisionPatientAccount(ctx context.Context, name, email string) (models.User, error)
	RemoveAccountByEmail(ctx context.Context, email string) error
}

// Notifier dispatches a fire-and-forget email task and returns its task id.
type Notifier interface {
	Dispatch(ctx context.Context, subject, body, recipient string) (string, error)
}

// AuditRecorder receives create/delete notifications for tracked entities.
type AuditRecorder interface {
	Created(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
	Deleted(ctx context.Context, actx models.AuditContext, entity, entityID string, metadata map[string]interface{})
}

// VisitRefCleaner nulls visit back-references when a patient is deleted.
type VisitRefCleaner interface {
	ClearPatientRefs(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	repo     Store
	cipher   *Cipher
	recorder AuditRecorder
	accounts AccountProvisioner
	notifier Notifier
	visits   VisitRefCleaner
}

func NewService(repo Store, cipher *Cipher, recorder AuditRecorder, accounts AccountProvisioner, notifier Notifier, visits VisitRefCleaner) *Service {
	return &Service{
		repo:     repo,
		cipher:   cipher,
		recorder: recorder,
		accounts: accounts,
		notifier: notifier,
		visits:   visits,
	}
}

func (s *Service) Create(ctx context.Context, actx models.AuditContext, req models.CreatePatientRequest) (models.Patient, error) {
	if req.Name == "" || req.Email == "" || req.Phone == "" {
		return models.Patient{}, apperr.InvalidRequest("name, email, and phone are required")
	}
	if !ValidPhone(req.Phone) {
		return models.Patient{}, apperr.InvalidPhoneFormat()
	}

	// Visit operations resolve patients by name; the name must identify
	// exactly one record.
	if exists, err := s.repo.NameExists(ctx, req.Name, uuid.Nil); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateName("patient", req.Name)
	}

	digest := s.cipher.Digest(req.Phone)
	if exists, err := s.repo.PhoneDigestExists(ctx, digest, uuid.Nil); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateContact("phone")
	}
	if exists, err := s.repo.EmailExists(ctx, req.Email, uuid.Nil); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateContact("email")
	}

	ciphertext, err := s.cipher.Encrypt(req.Phone)
	if err != nil {
		return models.Patient{}, err
	}

	id, err := s.repo.Create(ctx, CreateInput{
		Name:            req.Name,
		DateOfBirth:     req.DateOfBirth,
		Address:         req.Address,
		PhoneCiphertext: ciphertext,
		PhoneDigest:     digest,
		Email:           req.Email,
	})
	if err != nil {
		return models.Patient{}, err
	}

	s.recorder.Created(ctx, actx, "patient", id.String(), map[string]interface{}{
		"name":  req.Name,
		"email": req.Email,
	})

	// Account provisioning and the welcome email are best-effort; the
	// create call already succeeded.
	s.provisionAccount(ctx, id, req.Name, req.Email)
	s.sendWelcome(ctx, req.Name, req.Email)

	return s.Get(ctx, id)
}

func (s *Service) provisionAccount(ctx context.Context, patientID uuid.UUID, name, email string) {
	if s.accounts == nil {
		return
	}
	user, err := s.accounts.ProvisionPatientAccount(ctx, name, email)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("Failed to provision patient account")
		return
	}
	if err := s.PopulateAccountID(ctx, patientID, user.ID); err != nil {
		logger.Log.WithError(err).WithField("patient_id", patientID).Error("Failed to populate account id")
	}
}

func (s *Service) sendWelcome(ctx context.Context, name, email string) {
	if s.notifier == nil {
		return
	}
	body := fmt.Sprintf("Hello %s, your patient record has been registered.", name)
	if _, err := s.notifier.Dispatch(ctx, "Welcome to the hospital network", body, email); err != nil {
		logger.Log.WithError(err).WithField("recipient", email).Error("Failed to dispatch welcome email")
	}
}

// PopulateAccountID links the patient to a user account exactly once; a
// repeat call is a no-op.
func (s *Service) PopulateAccountID(ctx context.Context, patientID, accountID uuid.UUID) error {
	return s.repo.SetAccountID(ctx, patientID, accountID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	record, ciphertext, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Patient{}, notFound(err, id.String())
	}
	phone, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		return models.Patient{}, err
	}
	record.Phone = phone
	return record, nil
}

func (s *Service) List(ctx context.Context) ([]models.Patient, error) {
	records, ciphertexts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		phone, err := s.cipher.Decrypt(ciphertexts[i])
		if err != nil {
			return nil, err
		}
		records[i].Phone = phone
	}
	return records, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req models.CreatePatientRequest) (models.Patient, error) {
	if req.Name == "" || req.Email == "" || req.Phone == "" {
		return models.Patient{}, apperr.InvalidRequest("name, email, and phone are required")
	}
	if !ValidPhone(req.Phone) {
		return models.Patient{}, apperr.InvalidPhoneFormat()
	}

	if exists, err := s.repo.NameExists(ctx, req.Name, id); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateName("patient", req.Name)
	}

	digest := s.cipher.Digest(req.Phone)
	if exists, err := s.repo.PhoneDigestExists(ctx, digest, id); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateContact("phone")
	}
	if exists, err := s.repo.EmailExists(ctx, req.Email, id); err != nil {
		return models.Patient{}, err
	} else if exists {
		return models.Patient{}, apperr.DuplicateContact("email")
	}

	ciphertext, err := s.cipher.Encrypt(req.Phone)
	if err != nil {
		return models.Patient{}, err
	}

	err = s.repo.Update(ctx, id, UpdateInput{
		Name:            req.Name,
		DateOfBirth:     req.DateOfBirth,
		Address:         req.Address,
		PhoneCiphertext: ciphertext,
		PhoneDigest:     digest,
		Email:           req.Email,
	})
	if err != nil {
		return models.Patient{}, notFound(err, id.String())
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actx models.AuditContext, id uuid.UUID) error {
	record, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return notFound(err, id.String())
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, id.String())
	}
	if err := s.visits.ClearPatientRefs(ctx, id); err != nil {
		logger.Log.WithError(err).WithField("patient_id", id).Error("Failed to clear visit references")
	}
	if s.accounts != nil {
		if err := s.accounts.RemoveAccountByEmail(ctx, record.Email); err != nil {
			logger.Log.WithError(err).WithField("email", record.Email).Warn("No user account removed for deleted patient")
		}
	}
	s.recorder.Deleted(ctx, actx, "patient", id.String(), map[string]interface{}{
		"name":  record.Name,
		"email": record.Email,
	})
	return nil
}

func notFound(err error, value string) error {
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("patient", value)
	}
	return err
}
