package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

const maxStackDepth = 10

// Error is a coded error. Code picks the HTTP status; Message is what crosses the API boundary.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
	Stack   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Format prints the stack with %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch {
	case verb == 'v' && s.Flag('+'):
		_, _ = fmt.Fprintf(s, "[%d] %s", e.Code, e.Error())
		if e.Err != nil {
			_, _ = fmt.Fprintf(s, ": %v", e.Err)
		}
		_, _ = fmt.Fprint(s, e.Stack)
	case verb == 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = fmt.Fprint(s, e.Error())
	}
}

func build(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     cause,
		Stack:   callers(3),
	}
}

// New creates an error carrying the code's default message.
func New(code ErrorCode) *Error {
	return build(code, code.Message(), nil)
}

// Newf creates an error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return build(code, fmt.Sprintf(format, args...), nil)
}

// Wrap attaches code to err. A coded error is re-coded in place.
func Wrap(err error, code ErrorCode) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		e.Code = code
		return e
	}
	return build(code, err.Error(), err)
}

// Wrapf wraps err under a new message. The cause stays reachable through Unwrap but is not part
// of Message, so callers that want it shown format it in.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return build(code, fmt.Sprintf(format, args...), err)
}

func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetCode returns the code of the first coded error in err's chain, Success for nil and
// InternalServerError for uncoded errors.
func GetCode(err error) ErrorCode {
	if err == nil {
		return Success
	}
	if e := find(err); e != nil {
		return e.Code
	}
	return InternalServerError
}

// GetError returns the first coded error in err's chain, coding plain errors as internal.
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if e := find(err); e != nil {
		return e
	}
	return Wrap(err, InternalServerError)
}

// Is reports whether err's chain holds a coded error with code.
func Is(err error, code ErrorCode) bool {
	e := find(err)
	return e != nil && e.Code == code
}

func find(err error) *Error {
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return nil
}

func callers(skip int) string {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&b, "\n\t%s:%d %s", frame.File, frame.Line, frame.Function)
		}
		if !more {
			return b.String()
		}
	}
}

// ValidationError reports an invalid field.
func ValidationError(field, reason string) *Error {
	return New(ValidationFailed).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// StageViolationError reports a submission made while the conductor is at a stage that does not accept it.
func StageViolationError(stage string) *Error {
	return Newf(StageViolation, "Cannot submit at stage: %q", stage).WithDetail("stage", stage)
}

// UnknownProblemError reports an id that is not present in the problem registry.
func UnknownProblemError(problemID string) *Error {
	return Newf(ProblemNotFound, "Problem ID %s not found in registry", problemID).WithDetail("problem_id", problemID)
}

// ParseError reports a malformed textual submission.
func ParseError(format string, args ...interface{}) *Error {
	return Newf(SubmissionParseError, format, args...)
}

// NoActiveProblemError reports a query or submission made with no problem started.
func NoActiveProblemError() *Error {
	return New(NoActiveProblem)
}
