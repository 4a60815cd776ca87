package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string identifier of a specific error condition.
// The prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Model errors cover reading and decoding model files.
const (
	ErrCodeModelUnreadable ErrorCode = "MODEL_001"
	ErrCodeModelMalformed  ErrorCode = "MODEL_002"
	ErrCodeModelEmpty      ErrorCode = "MODEL_003"
)

// State errors cover explorer sessions and their actions.
const (
	ErrCodeSessionNotFound    ErrorCode = "STATE_001"
	ErrCodeModelNotLoaded     ErrorCode = "STATE_002"
	ErrCodeSelectionInvalid   ErrorCode = "STATE_003"
	ErrCodeSortInvalid        ErrorCode = "STATE_004"
	ErrCodeSnapshotIncomplete ErrorCode = "STATE_005"
)

// Store errors cover persistence and export adapters.
const (
	ErrCodeSnapshotNotFound ErrorCode = "STORE_001"
	ErrCodeObjectNotFound   ErrorCode = "STORE_002"
	ErrCodeMigrationFailed  ErrorCode = "STORE_003"
	ErrCodeGraphExport      ErrorCode = "STORE_004"
	ErrCodeIndexFailed      ErrorCode = "STORE_005"
	ErrCodePublishFailed    ErrorCode = "STORE_006"
)

// Aliases used at call sites.
const (
	CodeInternal         = ErrCodeInternal
	CodeInvalidParam     = ErrCodeBadRequest
	CodeNotFound         = ErrCodeNotFound
	CodeConflict         = ErrCodeConflict
	CodeSessionNotFound  = ErrCodeSessionNotFound
	CodeSnapshotNotFound = ErrCodeSnapshotNotFound
	CodeObjectNotFound   = ErrCodeObjectNotFound
	CodeDatabaseError    = ErrCodeDatabaseError
	CodeOK               = ErrorCode("OK")
	CodeUnknown          = ErrorCode("UNKNOWN")
)

// ErrorCodeHTTPStatus maps codes to HTTP statuses.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusNotImplemented,

	ErrCodeModelUnreadable: http.StatusBadRequest,
	ErrCodeModelMalformed:  http.StatusUnprocessableEntity,
	ErrCodeModelEmpty:      http.StatusUnprocessableEntity,

	ErrCodeSessionNotFound:    http.StatusNotFound,
	ErrCodeModelNotLoaded:     http.StatusConflict,
	ErrCodeSelectionInvalid:   http.StatusBadRequest,
	ErrCodeSortInvalid:        http.StatusBadRequest,
	ErrCodeSnapshotIncomplete: http.StatusUnprocessableEntity,

	ErrCodeSnapshotNotFound: http.StatusNotFound,
	ErrCodeObjectNotFound:   http.StatusNotFound,
	ErrCodeMigrationFailed:  http.StatusInternalServerError,
	ErrCodeGraphExport:      http.StatusBadGateway,
	ErrCodeIndexFailed:      http.StatusBadGateway,
	ErrCodePublishFailed:    http.StatusBadGateway,
}

// ErrorCodeMessage holds default messages per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeModelUnreadable: "model file could not be read",
	ErrCodeModelMalformed:  "model file is malformed",
	ErrCodeModelEmpty:      "model has no reactions",

	ErrCodeSessionNotFound:    "session not found",
	ErrCodeModelNotLoaded:     "no model loaded in session",
	ErrCodeSelectionInvalid:   "invalid selection",
	ErrCodeSortInvalid:        "invalid sort specification",
	ErrCodeSnapshotIncomplete: "snapshot is incomplete",

	ErrCodeSnapshotNotFound: "snapshot not found",
	ErrCodeObjectNotFound:   "object not found",
	ErrCodeMigrationFailed:  "migration failed",
	ErrCodeGraphExport:      "graph export failed",
	ErrCodeIndexFailed:      "search indexing failed",
	ErrCodePublishFailed:    "event publish failed",
}

// HTTPStatusForCode returns the HTTP status for code, defaulting to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of code.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
