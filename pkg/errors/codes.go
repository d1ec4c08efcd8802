package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases used by call sites that predate the module prefixes.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Assessment Module Error Codes
const (
	ErrCodeInvalidAnswer       ErrorCode = "ASM_001"
	ErrCodeIncompleteResponse  ErrorCode = "ASM_002"
	ErrCodeFrameworkNotFound   ErrorCode = "ASM_003"
	ErrCodeAssessmentNotFound  ErrorCode = "ASM_004"
	ErrCodeInvalidScoringTable ErrorCode = "ASM_005"
	ErrCodeAISystemNotFound    ErrorCode = "ASM_006"
)

// Certificate Module Error Codes
const (
	ErrCodeCertificateNotFound     ErrorCode = "CRT_001"
	ErrCodeSerialCollision         ErrorCode = "CRT_002"
	ErrCodeInvalidCertificateInput ErrorCode = "CRT_003"
	ErrCodeArchiveFailed           ErrorCode = "CRT_004"
)

// Recommendation Module Error Codes
const (
	ErrCodeGenerationFailed ErrorCode = "REC_001"
	ErrCodeEmptyGeneration  ErrorCode = "REC_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeInvalidAnswer:       http.StatusUnprocessableEntity,
	ErrCodeIncompleteResponse:  http.StatusUnprocessableEntity,
	ErrCodeFrameworkNotFound:   http.StatusNotFound,
	ErrCodeAssessmentNotFound:  http.StatusNotFound,
	ErrCodeInvalidScoringTable: http.StatusInternalServerError,
	ErrCodeAISystemNotFound:    http.StatusNotFound,

	ErrCodeCertificateNotFound:     http.StatusNotFound,
	ErrCodeSerialCollision:         http.StatusConflict,
	ErrCodeInvalidCertificateInput: http.StatusBadRequest,
	ErrCodeArchiveFailed:           http.StatusInternalServerError,

	ErrCodeGenerationFailed: http.StatusBadGateway,
	ErrCodeEmptyGeneration:  http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeInvalidAnswer:       "invalid questionnaire answer",
	ErrCodeIncompleteResponse:  "incomplete questionnaire response",
	ErrCodeFrameworkNotFound:   "maturity framework not found",
	ErrCodeAssessmentNotFound:  "assessment not found",
	ErrCodeInvalidScoringTable: "invalid scoring table",
	ErrCodeAISystemNotFound:    "AI system not found",

	ErrCodeCertificateNotFound:     "certificate not found",
	ErrCodeSerialCollision:         "certificate serial collision",
	ErrCodeInvalidCertificateInput: "invalid certificate input",
	ErrCodeArchiveFailed:           "certificate archive failed",

	ErrCodeGenerationFailed: "text generation failed",
	ErrCodeEmptyGeneration:  "text generation returned no content",
}

// retryableCodes lists codes a caller may retry without changing its input.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeSerialCollision:    true,
	ErrCodeTimeout:            true,
	ErrCodeServiceUnavailable: true,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// IsRetryableCode reports whether an operation failing with code may be retried as-is.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
