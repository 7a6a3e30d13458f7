package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Submission module errors
// 12000-12999: Judge collaborator errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10004
	Timeout             ErrorCode = 10005

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheSetFailed ErrorCode = 10201

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	RequiredFieldEmpty ErrorCode = 10301

	// ========== Submission Module Errors (11000-11999) ==========

	SubmissionNotFound     ErrorCode = 11000
	SubmissionCreateFailed ErrorCode = 11001
	SubmissionDeleteFailed ErrorCode = 11002
	CodeTooLarge           ErrorCode = 11003

	// ========== Judge Collaborator Errors (12000-12999) ==========

	JudgeUnavailable  ErrorCode = 12000
	JudgeTokenMissing ErrorCode = 12001
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Database
	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	// Cache
	CacheError:     "Cache operation failed",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	RequiredFieldEmpty: "Required field is empty",

	// Submission
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	SubmissionDeleteFailed: "Failed to delete submission",
	CodeTooLarge:           "Code is too large",

	// Judge
	JudgeUnavailable:  "Judge service unavailable",
	JudgeTokenMissing: "Judge service did not return a token",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == RecordNotFound, c == SubmissionNotFound:
		return 404
	case c == InvalidParams, c >= 10300 && c < 10400:
		return 400
	case c == CodeTooLarge:
		return 413
	case c == ServiceUnavailable, c >= 12000 && c < 13000:
		return 503
	default:
		return 500
	}
}
