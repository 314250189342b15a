package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 12000-12999: Problem registry errors
// 13000-13999: Grading & Conductor errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Problem Registry Errors (12000-12999) ==========

	// Problem basic (12000-12099)
	ProblemNotFound      ErrorCode = 12000
	ProblemAlreadyExists ErrorCode = 12001
	ProblemCreateFailed  ErrorCode = 12002

	// Catalog (12100-12199)
	CatalogInvalid    ErrorCode = 12100
	CatalogLoadFailed ErrorCode = 12101

	// ========== Grading & Conductor Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionParseError ErrorCode = 13000
	StageViolation       ErrorCode = 13001
	NoActiveProblem      ErrorCode = 13002

	// Oracle (13100-13199)
	OracleEvaluationError ErrorCode = 13100

	// Fault lifecycle (13200-13299)
	FaultInjectionError  ErrorCode = 13200
	FaultAlreadyInjected ErrorCode = 13201
	SectionAlreadyArmed  ErrorCode = 13202

	// Environment (13300-13399)
	ConfigurationError ErrorCode = 13300
	DeployFailed       ErrorCode = 13301
	CommandFailed      ErrorCode = 13302
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

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Problem
	ProblemNotFound:      "Problem not found",
	ProblemAlreadyExists: "Problem already registered",
	ProblemCreateFailed:  "Failed to create problem",

	// Catalog
	CatalogInvalid:    "Invalid problem catalog",
	CatalogLoadFailed: "Failed to load problem catalog",

	// Submission
	SubmissionParseError: "Failed to parse submission",
	StageViolation:       "Submission is not allowed at the current stage",
	NoActiveProblem:      "No problem has been started",

	// Oracle
	OracleEvaluationError: "Oracle evaluation failed",

	// Fault lifecycle
	FaultInjectionError:  "Fault injection failed",
	FaultAlreadyInjected: "Fault is already injected",
	SectionAlreadyArmed:  "A critical section is already armed",

	// Environment
	ConfigurationError: "Invalid environment configuration",
	DeployFailed:       "Application deployment failed",
	CommandFailed:      "External command failed",
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
	case c == NotFound, c == ProblemNotFound:
		return 404
	case c == ServiceUnavailable:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c >= 13000 && c < 13100: // Submission errors
		return 400
	case c == InvalidParams:
		return 400
	default:
		return 500
	}
}
