package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mutasi/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeStateConflict, http.StatusConflict},
		{shared.CodeConfiguration, http.StatusServiceUnavailable},
		{shared.CodeNetwork, http.StatusBadGateway},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestResponseEnvelopes(t *testing.T) {
	ok := NewSuccessResponse(map[string]string{"hello": "world"})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)

	fail := NewErrorResponseWithRequestID(shared.CodeNotFound, "missing", "req-1")
	assert.False(t, fail.Success)
	assert.Equal(t, shared.CodeNotFound, fail.Error.Code)
	assert.Equal(t, "req-1", fail.Error.RequestID)
}
