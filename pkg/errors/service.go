package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is an error tagged with the HTTP status it should surface as.
type ServiceError struct {
	Code    int
	Message string
	Err     error
}

func NewServiceError(code int, message string, err error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewNotFoundError(resourceType string, id interface{}) *ServiceError {
	message := fmt.Sprintf("%s with ID=%v not found", resourceType, id)
	return NewServiceError(http.StatusNotFound, message, ErrNotFound)
}

func NewAlreadyExistsError(resourceType string, field string, value interface{}) *ServiceError {
	message := fmt.Sprintf("%s with %s=%v already exists", resourceType, field, value)
	return NewServiceError(http.StatusConflict, message, ErrAlreadyExists)
}

func NewInvalidCredentialsError() *ServiceError {
	return NewServiceError(http.StatusUnauthorized, "invalid username or password", ErrInvalidCredentials)
}

func NewUnauthorizedError(reason string) *ServiceError {
	message := "authorization required"
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return NewServiceError(http.StatusUnauthorized, message, ErrUnauthorized)
}

func NewForbiddenError(reason string) *ServiceError {
	message := "access forbidden"
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return NewServiceError(http.StatusForbidden, message, ErrForbidden)
}

func NewInternalServerError(err error) *ServiceError {
	return NewServiceError(http.StatusInternalServerError, "internal server error", err)
}

func NewBadRequestError(reason string) *ServiceError {
	message := "bad request"
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return NewServiceError(http.StatusBadRequest, message, ErrBadRequest)
}

func NewValidationError(field, reason string) *ServiceError {
	message := fmt.Sprintf("validation failed for field '%s': %s", field, reason)
	return NewServiceError(http.StatusBadRequest, message, ErrBadRequest)
}

// NewAdmissionViolationError builds the 409 surfaced when a cancellation
// request is rejected by the admission rule (§4.5).
func NewAdmissionViolationError(reason string) *ServiceError {
	message := "order is not admissible for cancellation"
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
	}
	return NewServiceError(http.StatusConflict, message, ErrAdmissionViolation)
}

// NewUnprocessableError builds the 422 surfaced for a structurally invalid
// order (e.g. zero pieces, entity.ErrEmptyOrder).
func NewUnprocessableError(reason string) *ServiceError {
	return NewServiceError(http.StatusUnprocessableEntity, reason, ErrBadRequest)
}

// NewAuthKeyNotReadyError builds the 503 surfaced while the auth service's
// verification key hasn't been fetched yet.
func NewAuthKeyNotReadyError() *ServiceError {
	return NewServiceError(http.StatusServiceUnavailable, "auth verification key not loaded yet", ErrAuthKeyNotReady)
}

// ToHTTPResponse maps an error to an HTTP status code and response body.
func ToHTTPResponse(err error) (int, interface{}) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code, map[string]string{
			"error": se.Message,
		}
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrAdmissionViolation):
		return http.StatusConflict, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrAuthKeyNotReady):
		return http.StatusServiceUnavailable, map[string]string{"error": err.Error()}
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
	}
}

func HandleServiceError(err error, context string) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		LogError(err, context)
		return se
	}

	LogError(err, context)

	switch {
	case errors.Is(err, ErrNotFound):
		return NewServiceError(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, ErrAlreadyExists):
		return NewServiceError(http.StatusConflict, err.Error(), err)
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return NewServiceError(http.StatusUnauthorized, err.Error(), err)
	case errors.Is(err, ErrForbidden):
		return NewServiceError(http.StatusForbidden, err.Error(), err)
	case errors.Is(err, ErrAdmissionViolation):
		return NewServiceError(http.StatusConflict, err.Error(), err)
	case errors.Is(err, ErrAuthKeyNotReady):
		return NewServiceError(http.StatusServiceUnavailable, err.Error(), err)
	case errors.Is(err, ErrBadRequest):
		return NewServiceError(http.StatusBadRequest, err.Error(), err)
	default:
		return NewServiceError(http.StatusInternalServerError, "internal server error", err)
	}
}
