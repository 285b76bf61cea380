package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// conflictError marks a lost race on an idempotency guard: the caller acted on
// state that another actor already resolved. Distinct from a system failure.
func conflictError(message string) *DomainError {
	return domainError(http.StatusConflict, "ALREADY_PROCESSED", message, nil)
}

// preconditionError marks genuinely missing prerequisite data, as opposed to
// the normal "not both parties ready yet" waiting state.
func preconditionError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "PRECONDITION_FAILED", message, nil)
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

func notFoundError(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}
