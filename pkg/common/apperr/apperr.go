package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable error discriminator carried on every
// validation failure payload.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindLinkageInvalid      Kind = "linkage_invalid"
	KindDoctorNotAssigned   Kind = "doctor_not_assigned"
	KindConflictActiveVisit Kind = "conflict_active_visit"
	KindInvalidPhoneFormat  Kind = "invalid_phone_format"
	KindDuplicateContact    Kind = "duplicate_contact"
	KindDuplicateName       Kind = "duplicate_name"
	KindInvalidStatus       Kind = "invalid_status"
	KindNoActiveVisit       Kind = "no_active_visit"
	KindInvalidRequest      Kind = "invalid_request"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Entity  string `json:"entity,omitempty"`
	Value   string `json:"value,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NotFound(entity, value string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s '%s' does not exist", entity, value),
		Entity:  entity,
		Value:   value,
	}
}

func LinkageInvalid(hospital, department string) *Error {
	return &Error{
		Kind:    KindLinkageInvalid,
		Message: fmt.Sprintf("The hospital '%s' and department '%s' are not linked.", hospital, department),
	}
}

func DoctorNotAssigned(doctor, hospital, department string) *Error {
	return &Error{
		Kind:    KindDoctorNotAssigned,
		Message: fmt.Sprintf("doctor '%s' is not assigned to hospital '%s' department '%s'", doctor, hospital, department),
		Entity:  "doctor",
		Value:   doctor,
	}
}

func ConflictActiveVisit(patient string) *Error {
	return &Error{
		Kind:    KindConflictActiveVisit,
		Message: fmt.Sprintf("patient '%s' already has a visit that is not discharged", patient),
		Entity:  "patient",
		Value:   patient,
	}
}

func InvalidPhoneFormat() *Error {
	return &Error{
		Kind:    KindInvalidPhoneFormat,
		Message: "Enter a valid phone number",
	}
}

func DuplicateContact(field string) *Error {
	return &Error{
		Kind:    KindDuplicateContact,
		Message: fmt.Sprintf("a patient with this %s already exists", field),
		Entity:  "patient",
		Value:   field,
	}
}

func DuplicateName(entity, name string) *Error {
	return &Error{
		Kind:    KindDuplicateName,
		Message: fmt.Sprintf("a %s named '%s' already exists", entity, name),
		Entity:  entity,
		Value:   name,
	}
}

func InvalidStatus(value string) *Error {
	return &Error{
		Kind:    KindInvalidStatus,
		Message: fmt.Sprintf("'%s' is not a valid visit status", value),
		Value:   value,
	}
}

func NoActiveVisit(patient string) *Error {
	return &Error{
		Kind:    KindNoActiveVisit,
		Message: fmt.Sprintf("patient '%s' has no active visit", patient),
		Entity:  "patient",
		Value:   patient,
	}
}

func InvalidRequest(message string) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Message: message,
	}
}

// As unwraps err into a structured *Error when possible.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps an error to its client-facing status code. Unexpected
// failures collapse to 500 and are never serialized verbatim.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflictActiveVisit, KindDuplicateContact, KindDuplicateName:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
