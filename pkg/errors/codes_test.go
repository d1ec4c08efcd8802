package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
	assert.Equal(t, "CRT_002", ErrCodeSerialCollision.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeValidation, 400},
		{ErrCodeIncompleteResponse, 422},
		{ErrCodeInvalidAnswer, 422},
		{ErrCodeCertificateNotFound, 404},
		{ErrCodeSerialCollision, 409},
		{ErrorCode("NOPE_999"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), string(tt.code))
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "certificate serial collision", DefaultMessageForCode(ErrCodeSerialCollision))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_999")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(ErrCodeIncompleteResponse))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeExternalService))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestIsRetryableCode(t *testing.T) {
	assert.True(t, IsRetryableCode(ErrCodeSerialCollision))
	assert.False(t, IsRetryableCode(ErrCodeConflict))
	assert.False(t, IsRetryableCode(ErrCodeValidation))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "ASM", ModuleForCode(ErrCodeIncompleteResponse))
	assert.Equal(t, "CRT", ModuleForCode(ErrCodeCertificateNotFound))
	assert.Equal(t, "REC", ModuleForCode(ErrCodeGenerationFailed))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	re := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, re, string(code))
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing default message for %s", code)
	}
}
