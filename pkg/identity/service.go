package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/meridian-health/hms/pkg/common/logger"
	"github.com/meridian-health/hms/pkg/common/models"
	"github.com/meridian-health/hms/pkg/gateway/auth"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBootstrapNotAllowed = errors.New("platform already bootstrapped")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

// defaultPatientPassword is the credential set on provisioned patient
// accounts; the patient is expected to change it after first login.
const defaultPatientPassword = "default"

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Bootstrap creates the first admin user; it is refused once any user
// exists.
func (s *Service) Bootstrap(ctx context.Context, email, name, password string) (models.User, error) {
	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrBootstrapNotAllowed
	}
	return s.createUser(ctx, email, name, auth.RoleAdmin, password)
}

func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.User, error) {
	role := req.Role
	if role == "" {
		role = auth.RoleStaff
	}
	return s.createUser(ctx, req.Email, req.Name, role, req.Password)
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *Service) LookupByEmail(ctx context.Context, email string) (models.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// ProvisionPatientAccount creates the patient-facing login that backs a new
// patient record.
func (s *Service) ProvisionPatientAccount(ctx context.Context, name, email string) (models.User, error) {
	user, err := s.createUser(ctx, email, name, auth.RolePatientUser, defaultPatientPassword)
	if err != nil {
		return models.User{}, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Provisioned patient account")
	return user, nil
}

// RemoveAccountByEmail deletes the user provisioned for a patient record.
func (s *Service) RemoveAccountByEmail(ctx context.Context, email string) error {
	deleted, err := s.repo.DeleteUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return fmt.Errorf("no user found with email '%s'", email)
	}
	return nil
}

func (s *Service) createUser(ctx context.Context, email, name, role, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("email and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	return s.repo.CreateUser(ctx, CreateUserInput{
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
	})
}
