package dto

import (
	"net/http"

	"github.com/mutasi/backend/internal/domain/shared"
)

// Error codes raised by the HTTP layer itself, next to the domain codes
// from shared.
const (
	// ErrCodeUnauthorized is used when authentication is missing or invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeNotReady is used when a backing service is unreachable
	ErrCodeNotReady = "NOT_READY"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes.
// CONFIGURATION_ERROR and the upstream failure codes surface as 5xx:
// reads degrade to dummy data before reaching here, so anything that
// still carries these codes is a write the caller must see fail.
var errorCodeHTTPStatus = map[string]int{
	shared.CodeNotFound:      http.StatusNotFound,
	shared.CodeForbidden:     http.StatusForbidden,
	shared.CodeValidation:    http.StatusBadRequest,
	shared.CodeStateConflict: http.StatusConflict,

	shared.CodeConfiguration:  http.StatusServiceUnavailable,
	shared.CodeAuthentication: http.StatusBadGateway,
	shared.CodeNetwork:        http.StatusBadGateway,
	shared.CodeInternal:       http.StatusInternalServerError,

	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeNotReady:        http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
