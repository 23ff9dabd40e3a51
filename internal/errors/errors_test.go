package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorType_Constants(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		expected string
	}{
		{
			name:     "parsing error type",
			errType:  ErrTypeParsing,
			expected: "PARSING",
		},
		{
			name:     "storage error type",
			errType:  ErrTypeStorage,
			expected: "STORAGE",
		},
		{
			name:     "validation error type",
			errType:  ErrTypeValidation,
			expected: "VALIDATION",
		},
		{
			name:     "not found error type",
			errType:  ErrTypeNotFound,
			expected: "NOT_FOUND",
		},
		{
			name:     "permission error type",
			errType:  ErrTypePermission,
			expected: "PERMISSION",
		},
		{
			name:     "config error type",
			errType:  ErrTypeConfig,
			expected: "CONFIG",
		},
		{
			name:     "notify error type",
			errType:  ErrTypeNotify,
			expected: "NOTIFY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.errType))
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name: "error without cause",
			appError: &AppError{
				Type:    ErrTypePermission,
				Message: "user cannot run the pipeline",
				Cause:   nil,
			},
			wantMessage: "[PERMISSION] user cannot run the pipeline",
		},
		{
			name: "error with cause",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "failed to open workbook",
				Cause:   fmt.Errorf("zip: not a valid zip file"),
			},
			wantMessage: "[PARSING] failed to open workbook: zip: not a valid zip file",
		},
		{
			name: "error with complex cause",
			appError: &AppError{
				Type:    ErrTypeStorage,
				Message: "failed to write report",
				Cause:   errors.New("disk full"),
			},
			wantMessage: "[STORAGE] failed to write report: disk full",
		},
		{
			name: "error with empty message",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "",
				Cause:   nil,
			},
			wantMessage: "[VALIDATION] ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			assert.Equal(t, tt.wantMessage, got)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	t.Run("unwrap with cause", func(t *testing.T) {
		cause := fmt.Errorf("original error")
		appErr := NewStorageError("write failed", cause)
		assert.Equal(t, cause, appErr.Unwrap())
	})

	t.Run("unwrap without cause", func(t *testing.T) {
		appErr := NewValidationError("bad input")
		assert.Nil(t, appErr.Unwrap())
	})
}

func TestAppError_WithContext(t *testing.T) {
	tests := []struct {
		name          string
		appError      *AppError
		key           string
		value         interface{}
		expectedValue interface{}
	}{
		{
			name: "add string context",
			appError: &AppError{
				Type:    ErrTypePermission,
				Message: "denied",
			},
			key:           "user",
			value:         "analyst1@example.com",
			expectedValue: "analyst1@example.com",
		},
		{
			name: "add integer context",
			appError: &AppError{
				Type:    ErrTypeParsing,
				Message: "bad sheet",
			},
			key:           "row",
			value:         3,
			expectedValue: 3,
		},
		{
			name: "add context to error with existing context",
			appError: &AppError{
				Type:    ErrTypeValidation,
				Message: "missing keys",
				Context: map[string]interface{}{"section": "filters"},
			},
			key:           "key",
			value:         "min_quantity",
			expectedValue: "min_quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.WithContext(tt.key, tt.value)

			// Should return the same instance
			assert.Same(t, tt.appError, result)

			require.Contains(t, result.Context, tt.key)
			assert.Equal(t, tt.expectedValue, result.Context[tt.key])
			assert.NotNil(t, result.Context)
		})
	}
}

func TestAppError_WithContext_NilContext(t *testing.T) {
	appError := &AppError{
		Type:    ErrTypeConfig,
		Message: "bad config",
		Context: nil,
	}

	result := appError.WithContext("path", "config.yaml")

	assert.NotNil(t, result.Context)
	assert.Equal(t, "config.yaml", result.Context["path"])
}

func TestNewAppError(t *testing.T) {
	tests := []struct {
		name      string
		errType   ErrorType
		message   string
		cause     error
		wantType  ErrorType
		wantMsg   string
		wantCause error
	}{
		{
			name:      "create parsing error",
			errType:   ErrTypeParsing,
			message:   "cannot read workbook",
			cause:     fmt.Errorf("corrupt file"),
			wantType:  ErrTypeParsing,
			wantMsg:   "cannot read workbook",
			wantCause: fmt.Errorf("corrupt file"),
		},
		{
			name:      "create error without cause",
			errType:   ErrTypeNotify,
			message:   "smtp settings incomplete",
			cause:     nil,
			wantType:  ErrTypeNotify,
			wantMsg:   "smtp settings incomplete",
			wantCause: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAppError(tt.errType, tt.message, tt.cause)

			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantMsg, got.Message)

			if tt.wantCause != nil {
				require.NotNil(t, got.Cause)
				assert.Equal(t, tt.wantCause.Error(), got.Cause.Error())
			} else {
				assert.Nil(t, got.Cause)
			}

			assert.NotNil(t, got.Context)
			assert.Empty(t, got.Context)
		})
	}
}

func TestHelperConstructors(t *testing.T) {
	cause := fmt.Errorf("boom")

	tests := []struct {
		name     string
		got      *AppError
		wantType ErrorType
		wantMsg  string
		wantNil  bool
	}{
		{"parsing", NewParsingError("parse failed", cause), ErrTypeParsing, "parse failed", false},
		{"storage", NewStorageError("write failed", cause), ErrTypeStorage, "write failed", false},
		{"validation", NewValidationError("invalid"), ErrTypeValidation, "invalid", true},
		{"not found", NewNotFoundError("user"), ErrTypeNotFound, "user not found", true},
		{"permission", NewPermissionError("denied"), ErrTypePermission, "denied", true},
		{"config", NewConfigError("bad yaml", cause), ErrTypeConfig, "bad yaml", false},
		{"notify", NewNotifyError("send failed", cause), ErrTypeNotify, "send failed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.got.Type)
			assert.Equal(t, tt.wantMsg, tt.got.Message)
			if tt.wantNil {
				assert.Nil(t, tt.got.Cause)
			} else {
				assert.Equal(t, cause, tt.got.Cause)
			}
			assert.NotNil(t, tt.got.Context)
		})
	}
}

func TestIsType(t *testing.T) {
	t.Run("matches direct type", func(t *testing.T) {
		err := NewPermissionError("denied")
		assert.True(t, IsType(err, ErrTypePermission))
		assert.False(t, IsType(err, ErrTypeParsing))
	})

	t.Run("matches wrapped type", func(t *testing.T) {
		inner := NewStorageError("write failed", nil)
		wrapped := fmt.Errorf("pipeline: %w", inner)
		assert.True(t, IsType(wrapped, ErrTypeStorage))
	})

	t.Run("nested app errors", func(t *testing.T) {
		root := NewParsingError("bad cell", nil)
		outer := NewStorageError("save failed", root)
		assert.True(t, IsType(outer, ErrTypeStorage))
		assert.True(t, IsType(outer, ErrTypeParsing))
		assert.False(t, IsType(outer, ErrTypeConfig))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.False(t, IsType(nil, ErrTypeStorage))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.False(t, IsType(errors.New("plain"), ErrTypeStorage))
	})
}

func TestAppError_ErrorsIntegration(t *testing.T) {
	t.Run("errors.Is works with AppError", func(t *testing.T) {
		originalErr := fmt.Errorf("original error")
		appErr := NewStorageError("save failed", originalErr)

		assert.True(t, errors.Is(appErr, originalErr))

		otherErr := fmt.Errorf("other error")
		assert.False(t, errors.Is(appErr, otherErr))
	})

	t.Run("errors.As works with AppError", func(t *testing.T) {
		originalErr := &AppError{
			Type:    ErrTypePermission,
			Message: "denied",
		}
		wrappedErr := fmt.Errorf("wrapped: %w", originalErr)

		var appErr *AppError
		assert.True(t, errors.As(wrappedErr, &appErr))
		assert.Equal(t, ErrTypePermission, appErr.Type)
		assert.Equal(t, "denied", appErr.Message)
	})
}

func TestAppError_ContextChaining(t *testing.T) {
	appErr := NewConfigError("missing keys", nil)

	result := appErr.
		WithContext("section", "filters").
		WithContext("key", "min_quantity").
		WithContext("attempt", 1)

	assert.Same(t, appErr, result)
	assert.Equal(t, "filters", result.Context["section"])
	assert.Equal(t, "min_quantity", result.Context["key"])
	assert.Equal(t, 1, result.Context["attempt"])

	result.WithContext("attempt", 2)
	assert.Equal(t, 2, result.Context["attempt"])
}
