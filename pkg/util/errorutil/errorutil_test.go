package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("wrap: %w", NewNotFound("ticket", nil)), CodeNotFound, http.StatusNotFound},
		{"no rows becomes not found", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"wrapped no rows", fmt.Errorf("get ticket: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unknown error is internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestToDomainError_Nil(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))
	assert.NoError(t, MapError(nil))
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewValidationError("bad", nil), CodeValidation))
	assert.False(t, HasCode(NewValidationError("bad", nil), CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeValidation))
}

func TestNewNotificationError(t *testing.T) {
	cause := errors.New("smtp down")
	err := NewNotificationError("smtp", cause)

	assert.Equal(t, CodeNotificationFailed, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "smtp", err.Details["channel"])
}
