package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Directory entities

type Hospital struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"addr"`
}

type Department struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Doctor struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	HospitalID   uuid.UUID `json:"hospital_id"`
	DepartmentID uuid.UUID `json:"department_id"`
}

type Patient struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	DateOfBirth time.Time  `json:"date_of_birth"`
	Address     string     `json:"addr"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email"`
	AccountID   *uuid.UUID `json:"account_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// VisitStatus is transmitted as the literal strings "admitted", "waiting",
// "discharged".
type VisitStatus string

const (
	StatusAdmitted   VisitStatus = "admitted"
	StatusWaiting    VisitStatus = "waiting"
	StatusDischarged VisitStatus = "discharged"
)

func ParseVisitStatus(value string) (VisitStatus, error) {
	switch VisitStatus(value) {
	case StatusAdmitted, StatusWaiting, StatusDischarged:
		return VisitStatus(value), nil
	}
	return "", fmt.Errorf("unknown visit status %q", value)
}

// Visit keeps non-exclusive back-references; a deleted referent leaves the
// corresponding pointer nil.
type Visit struct {
	ID           uuid.UUID   `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	Status       VisitStatus `json:"status"`
	PatientID    *uuid.UUID  `json:"patient_id,omitempty"`
	DoctorID     *uuid.UUID  `json:"doctor_id,omitempty"`
	HospitalID   *uuid.UUID  `json:"hospital_id,omitempty"`
	DepartmentID *uuid.UUID  `json:"department_id,omitempty"`
}

// VisitView is the list/detail form with references resolved back to names.
type VisitView struct {
	ID         uuid.UUID   `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Status     VisitStatus `json:"status"`
	Patient    string      `json:"patient,omitempty"`
	Doctor     string      `json:"doctor,omitempty"`
	Hospital   string      `json:"hospital,omitempty"`
	Department string      `json:"department,omitempty"`
}

// Requests

type CreateHospitalRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"addr"`
	Departments []string `json:"departments"`
}

type UpdateHospitalRequest struct {
	Name    string `json:"name"`
	Address string `json:"addr"`
}

type CreateDoctorRequest struct {
	Name       string `json:"name"`
	Hospital   string `json:"hospital"`
	Department string `json:"department"`
}

type CreatePatientRequest struct {
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Address     string    `json:"addr"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
}

type CreateVisitRequest struct {
	Patient    string `json:"patient"`
	Doctor     string `json:"doctor"`
	Hospital   string `json:"hospital"`
	Department string `json:"department"`
}

type UpdateVisitStatusRequest struct {
	Status string `json:"status"`
}

type UpdatePatientVisitStatusRequest struct {
	Patient string `json:"patient"`
	Status  string `json:"status"`
}

// Identity

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Audit

// AuditContext carries the request identity into audit calls explicitly.
type AuditContext struct {
	Actor     string `json:"actor"`
	IPAddress string `json:"ip_address"`
	Method    string `json:"method"`
}

type AuditRecord struct {
	ID        int64                  `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor"`
	IPAddress string                 `json:"ip_address"`
	Method    string                 `json:"method"`
	Action    string                 `json:"action"`
	Entity    string                 `json:"entity"`
	EntityID  string                 `json:"entity_id"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Events

type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// EmailTask is the payload of a notification event. TaskID doubles as the
// handle for later status queries.
type EmailTask struct {
	TaskID    string `json:"task_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Recipient string `json:"recipient"`
}

// Task status values reported by the notification worker.
const (
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
	TaskFailed     = "Failed"
)

type TaskStatus struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}
