package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrNoteNotFound is returned when no note matches an id or identifier.
	ErrNoteNotFound = errors.New("note not found")
	// ErrUserNotFound is returned when no account matches an id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when an email or username is already taken.
	ErrUserExists = errors.New("a user with this email or username already exists")
	// ErrAdminExists is returned when bootstrapping after an account already exists.
	ErrAdminExists = errors.New("admin user already exists, only one admin is allowed")
	// ErrValidation is returned for malformed input that passed binding.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidRole is returned for role strings outside admin, manager, user.
	ErrInvalidRole = errors.New("invalid role, must be one of admin, manager, user")
	// ErrInvalidCredentials is returned when login or password is incorrect.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInactiveUser is returned when a disabled account tries to authenticate.
	ErrInactiveUser = errors.New("inactive user")
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the policy denies an action.
	ErrForbidden = errors.New("insufficient role for this action")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors keep the
// message of the outermost error so validation details reach the client.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrNoteNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNoteNotFound.Error(), "NOTE_NOT_FOUND")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUserExists):
		return NewHTTPError(http.StatusBadRequest, ErrUserExists.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrAdminExists):
		return NewHTTPError(http.StatusBadRequest, ErrAdminExists.Error(), "ADMIN_ALREADY_EXISTS")
	case errors.Is(err, ErrInvalidRole):
		return NewHTTPError(http.StatusUnprocessableEntity, ErrInvalidRole.Error(), "INVALID_ROLE")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInactiveUser):
		return NewHTTPError(http.StatusUnauthorized, ErrInactiveUser.Error(), "INACTIVE_USER")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error(), "INVALID_TOKEN")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusUnauthorized, ErrForbidden.Error(), "FORBIDDEN_ROLE")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
