// Package contextkey holds the typed context keys shared by the HTTP middleware and the logger.
package contextkey

type key string

func (k key) String() string {
	return string(k)
}

const (
	TraceID   key = "trace_id"
	RequestID key = "request_id"
	ProblemID key = "problem_id"
	Stage     key = "stage"
)
