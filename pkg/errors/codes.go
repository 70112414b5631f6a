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
	CodeOK       ErrorCode = "OK"
	CodeUnknown  ErrorCode = "COMMON_000"
	CodeInternal ErrorCode = "COMMON_001"
	// CodeCancelled marks a query aborted through its context.
	CodeCancelled     ErrorCode = "COMMON_002"
	CodeSerialization ErrorCode = "COMMON_003"
	CodeNotFound      ErrorCode = "COMMON_004"
)

// Query engine error codes.  The first three abort a query before any
// numeric work starts; CodeNumericDegeneracy is only ever reported as an
// advisory next to a successful result.
const (
	CodeInvalidArgument   ErrorCode = "QRY_001"
	CodeShapeMismatch     ErrorCode = "QRY_002"
	CodeUnsupportedMode   ErrorCode = "QRY_003"
	CodeUnsupportedMetric ErrorCode = "QRY_004"
	CodeNumericDegeneracy ErrorCode = "QRY_005"
	CodeBatchClamped      ErrorCode = "QRY_006"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeOK:            http.StatusOK,
	CodeUnknown:       http.StatusInternalServerError,
	CodeInternal:      http.StatusInternalServerError,
	CodeCancelled:     499,
	CodeSerialization: http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,

	CodeInvalidArgument:   http.StatusBadRequest,
	CodeShapeMismatch:     http.StatusBadRequest,
	CodeUnsupportedMode:   http.StatusNotImplemented,
	CodeUnsupportedMetric: http.StatusBadRequest,
	CodeNumericDegeneracy: http.StatusOK,
	CodeBatchClamped:      http.StatusOK,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	CodeOK:            "ok",
	CodeUnknown:       "unknown error",
	CodeInternal:      "internal error",
	CodeCancelled:     "query cancelled",
	CodeSerialization: "malformed request payload",
	CodeNotFound:      "resource not found",

	CodeInvalidArgument:   "invalid argument",
	CodeShapeMismatch:     "shape mismatch",
	CodeUnsupportedMode:   "unsupported mode",
	CodeUnsupportedMetric: "unsupported metric",
	CodeNumericDegeneracy: "numeric degeneracy, fallback applied",
	CodeBatchClamped:      "batch size clamped to candidate count",
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

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
