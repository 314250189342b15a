// Package oracle grades submitted answers and observed cluster state.
//
// Malformed answers are reported as a failed Result, never as an error.
// Evaluate returns an error only when the oracle itself cannot run, for
// example because the target it inspects is unreachable.
package oracle

import (
	"context"
	"encoding/json"
	"maps"
)

// Oracle evaluates a solution, or live state, and produces a verdict.
type Oracle interface {
	Name() string
	Evaluate(ctx context.Context, solution any) (Result, error)
}

// Result is the verdict of one oracle evaluation.
type Result struct {
	Success  bool
	Accuracy *float64
	Reason   string
	Extra    map[string]any
}

// Reasons reported by the built-in oracles.
const (
	ReasonCorrect       = "Correct"
	ReasonIncorrect     = "Incorrect"
	ReasonInvalidFormat = "Invalid Format"
	ReasonOracleError   = "Oracle error: "
)

// Failed builds the verdict recorded when an oracle could not run.
func Failed(err error) Result {
	return Result{Success: false, Reason: ReasonOracleError + err.Error()}
}

// AccuracyOf returns the accuracy or 0 when unset.
func (r Result) AccuracyOf() float64 {
	if r.Accuracy == nil {
		return 0
	}
	return *r.Accuracy
}

// InvalidFormat reports whether the verdict rejected the shape of the answer.
func (r Result) InvalidFormat() bool {
	return r.Reason == ReasonInvalidFormat
}

// With returns a copy of r carrying an extra diagnostic field.
func (r Result) With(key string, value any) Result {
	extra := make(map[string]any, len(r.Extra)+1)
	maps.Copy(extra, r.Extra)
	extra[key] = value
	r.Extra = extra
	return r
}

// Fields flattens the verdict into a single map, the shape it has on the wire.
func (r Result) Fields() map[string]any {
	out := make(map[string]any, len(r.Extra)+3)
	maps.Copy(out, r.Extra)
	out["success"] = r.Success
	if r.Accuracy != nil {
		out["accuracy"] = *r.Accuracy
	}
	if r.Reason != "" {
		out["reason"] = r.Reason
	}
	return out
}

// MarshalJSON encodes the verdict as a flat object.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// CloneValue returns a deep copy for results snapshots.
func (r Result) CloneValue() any {
	out := r
	if r.Accuracy != nil {
		acc := *r.Accuracy
		out.Accuracy = &acc
	}
	if r.Extra != nil {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = cloneExtra(v)
		}
	}
	return out
}

func cloneExtra(v any) any {
	switch val := v.(type) {
	case Result:
		return val.CloneValue()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneExtra(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneExtra(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func accuracy(v float64) *float64 {
	return &v
}
