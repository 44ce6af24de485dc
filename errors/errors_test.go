package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorFormatting(t *testing.T) {
	bare := NewValidationError("spookiness level must be between 1 and 5")
	assert.Equal(t, "VALIDATION_ERROR: spookiness level must be between 1 and 5", bare.Error())

	wrapped := NewCacheError("cache get failed", fmt.Errorf("connection refused"))
	assert.Contains(t, wrapped.Error(), "CACHE_ERROR: cache get failed")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestAppError_UnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewAIUnavailableError("AI service is unreachable", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestAppError_ErrorsAsThroughWrapping(t *testing.T) {
	inner := NewAIUnavailableError("AI service is unreachable", nil)
	outer := fmt.Errorf("generate recommendations: %w", inner)

	var appErr *AppError
	assert.True(t, stderrors.As(outer, &appErr))
	assert.Equal(t, AIUnavailableError, appErr.Type)
}

func TestConstructors_SetTypes(t *testing.T) {
	tests := []struct {
		err      *AppError
		expected ErrorType
	}{
		{NewValidationError("m"), ValidationError},
		{NewNotFoundError("m"), NotFoundError},
		{NewAlreadyExistsError("m"), AlreadyExistsError},
		{NewUnauthorizedError("m"), UnauthorizedError},
		{NewRateLimitError("m"), RateLimitError},
		{NewDatabaseError("m", nil), DatabaseError},
		{NewCacheError("m", nil), CacheError},
		{NewAIServiceError("m", nil), AIServiceError},
		{NewAIUnavailableError("m", nil), AIUnavailableError},
		{NewConfigurationError("m", nil), ConfigurationError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Type)
	}
}
