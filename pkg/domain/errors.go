package domain

import "fmt"

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeStorage                = "STORAGE_ERROR"
	ErrCodeSyncFailure            = "SYNC_FAILURE"
	ErrCodeTemplate               = "TEMPLATE_ERROR"
	ErrCodeDuplicateSchedule      = "DUPLICATE_SCHEDULE"
	ErrCodeScheduleWindowExceeded = "SCHEDULE_WINDOW_EXCEEDED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// Error constructors

// NewValidationError creates a new validation error
func NewValidationError(msg string) error {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewStorageError creates a new storage error wrapping the underlying cause
func NewStorageError(op string, err error) error {
	return &DomainError{
		Code:    ErrCodeStorage,
		Message: fmt.Sprintf("storage operation %s failed", op),
		Err:     err,
	}
}

// NewSyncFailureError creates a new CRM sync failure error
func NewSyncFailureError(reason string) error {
	return &DomainError{
		Code:    ErrCodeSyncFailure,
		Message: reason,
	}
}

// NewTemplateError creates a new message template error
func NewTemplateError(msg string) error {
	return &DomainError{
		Code:    ErrCodeTemplate,
		Message: msg,
	}
}

// NewDuplicateScheduleError creates a new duplicate schedule error
func NewDuplicateScheduleError(leadID, kind string) error {
	return &DomainError{
		Code:    ErrCodeDuplicateSchedule,
		Message: fmt.Sprintf("a pending %s notification already exists for lead %s", kind, leadID),
	}
}

// NewScheduleWindowExceededError creates a new schedule window error
func NewScheduleWindowExceededError(msg string) error {
	return &DomainError{
		Code:    ErrCodeScheduleWindowExceeded,
		Message: msg,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// Helper functions to check error types

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeValidation
	}
	return false
}

// IsStorage checks if the error is a storage error
func IsStorage(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeStorage
	}
	return false
}

// IsSyncFailure checks if the error is a CRM sync failure
func IsSyncFailure(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeSyncFailure
	}
	return false
}

// IsTemplate checks if the error is a template error
func IsTemplate(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeTemplate
	}
	return false
}

// IsDuplicateSchedule checks if the error is a duplicate schedule error
func IsDuplicateSchedule(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeDuplicateSchedule
	}
	return false
}

// IsScheduleWindowExceeded checks if the error is a schedule window error
func IsScheduleWindowExceeded(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeScheduleWindowExceeded
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeNotFound
	}
	return false
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeInternal
	}
	return false
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	return ErrCodeInternal
}
