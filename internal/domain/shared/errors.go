package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes shared across the application
const (
	CodeNotFound       = "NOT_FOUND"
	CodeForbidden      = "FORBIDDEN"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStateConflict  = "STATE_CONFLICT"
	CodeConfiguration  = "CONFIGURATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_FAILED"
	CodeNetwork        = "NETWORK_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
)

// Common domain errors
var (
	ErrNotFound       = NewDomainError(CodeNotFound, "Resource not found")
	ErrForbidden      = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrStateConflict  = NewDomainError(CodeStateConflict, "Operation not allowed in current state")
	ErrInvalidInput   = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotConfigured  = NewDomainError(CodeConfiguration, "Required configuration is missing")
	ErrAuthentication = NewDomainError(CodeAuthentication, "Authentication with upstream service failed")
	ErrUpstream       = NewDomainError(CodeNetwork, "Upstream service is unreachable")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewStateConflictError creates a state conflict error with a specific message
func NewStateConflictError(message string) *DomainError {
	return NewDomainError(CodeStateConflict, message)
}

// NewNotFoundError creates a not-found error with a specific message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewConfigurationError creates a configuration error with a specific message
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message)
}

// NewAuthenticationError creates an authentication error with a specific message
func NewAuthenticationError(message string) *DomainError {
	return NewDomainError(CodeAuthentication, message)
}

// NewNetworkError creates a network error with a specific message
func NewNetworkError(message string) *DomainError {
	return NewDomainError(CodeNetwork, message)
}
