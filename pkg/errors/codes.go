package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<nnn>" so that the module can be recovered for metrics.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
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
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_016"
)

// Short aliases used at most call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")

	CodeDatabaseError     = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeStorageError      = ErrCodeStorageError
	CodeMessageQueueError = ErrCodeMessageQueueError
)

// Entity Error Codes
const (
	ErrCodeMoleculeNotFound ErrorCode = "ENT_001"
	ErrCodeTargetNotFound   ErrorCode = "ENT_002"
	ErrCodeOrganismNotFound ErrorCode = "ENT_003"
	ErrCodeEffectNotFound   ErrorCode = "ENT_004"
	ErrCodeNodeNotFound     ErrorCode = "ENT_005"
	ErrCodeInvalidEntityID  ErrorCode = "ENT_006"
	ErrCodeUnknownEntity    ErrorCode = "ENT_007"
)

// API Client Error Codes
const (
	ErrCodeClientNotInitialized ErrorCode = "CLI_001"
	ErrCodeClientInitFailed     ErrorCode = "CLI_002"
	ErrCodeStaleChannel         ErrorCode = "CLI_003"
	ErrCodeUnexpectedShape      ErrorCode = "CLI_004"
	ErrCodeInvalidConfig        ErrorCode = "CLI_005"
)

// Enrichment Error Codes
const (
	ErrCodeEnrichmentFailed    ErrorCode = "ENR_001"
	ErrCodeEnrichmentNoData    ErrorCode = "ENR_002"
	ErrCodeJobNotFound         ErrorCode = "ENR_003"
	ErrCodeJobFailed           ErrorCode = "ENR_004"
	ErrCodeJobTimedOut         ErrorCode = "ENR_005"
	ErrCodeProviderRateLimited ErrorCode = "ENR_006"
)

// UI Error Codes
const (
	ErrCodeMountPointMissing ErrorCode = "UI_001"
	ErrCodeInitExhausted     ErrorCode = "UI_002"
	ErrCodeViewNotReady      ErrorCode = "UI_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,

	ErrCodeMoleculeNotFound: http.StatusNotFound,
	ErrCodeTargetNotFound:   http.StatusNotFound,
	ErrCodeOrganismNotFound: http.StatusNotFound,
	ErrCodeEffectNotFound:   http.StatusNotFound,
	ErrCodeNodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidEntityID:  http.StatusBadRequest,
	ErrCodeUnknownEntity:    http.StatusBadRequest,

	ErrCodeClientNotInitialized: http.StatusServiceUnavailable,
	ErrCodeClientInitFailed:     http.StatusServiceUnavailable,
	ErrCodeStaleChannel:         http.StatusServiceUnavailable,
	ErrCodeUnexpectedShape:      http.StatusBadGateway,
	ErrCodeInvalidConfig:        http.StatusInternalServerError,

	ErrCodeEnrichmentFailed:    http.StatusBadGateway,
	ErrCodeEnrichmentNoData:    http.StatusNotFound,
	ErrCodeJobNotFound:         http.StatusNotFound,
	ErrCodeJobFailed:           http.StatusInternalServerError,
	ErrCodeJobTimedOut:         http.StatusGatewayTimeout,
	ErrCodeProviderRateLimited: http.StatusTooManyRequests,

	ErrCodeMountPointMissing: http.StatusInternalServerError,
	ErrCodeInitExhausted:     http.StatusServiceUnavailable,
	ErrCodeViewNotReady:      http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessageQueueError:  "message queue error",

	ErrCodeMoleculeNotFound: "molecule not found",
	ErrCodeTargetNotFound:   "target not found",
	ErrCodeOrganismNotFound: "organism not found",
	ErrCodeEffectNotFound:   "effect not found",
	ErrCodeNodeNotFound:     "node not found",
	ErrCodeInvalidEntityID:  "invalid entity id",
	ErrCodeUnknownEntity:    "unknown entity kind",

	ErrCodeClientNotInitialized: "api client not initialized",
	ErrCodeClientInitFailed:     "api client initialization failed",
	ErrCodeStaleChannel:         "connection to the server was lost",
	ErrCodeUnexpectedShape:      "unexpected response shape",
	ErrCodeInvalidConfig:        "invalid client configuration",

	ErrCodeEnrichmentFailed:    "enrichment failed",
	ErrCodeEnrichmentNoData:    "no enrichment data found",
	ErrCodeJobNotFound:         "job not found",
	ErrCodeJobFailed:           "enrichment job failed",
	ErrCodeJobTimedOut:         "enrichment timed out, try again",
	ErrCodeProviderRateLimited: "enrichment provider rate limited",

	ErrCodeMountPointMissing: "mount point missing",
	ErrCodeInitExhausted:     "page failed to initialize",
	ErrCodeViewNotReady:      "view not ready",
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

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
