package oracle

import (
	"context"
	"strings"
)

// Detection grades a yes/no answer to "is there an incident?".
type Detection struct {
	expected string
}

// NewDetection creates a detection oracle expecting the given literal, typically "Yes" or "No".
func NewDetection(expected string) *Detection {
	return &Detection{expected: expected}
}

func (d *Detection) Name() string {
	return "detection"
}

// Expected returns the literal the oracle compares against.
func (d *Detection) Expected() string {
	return d.expected
}

// Evaluate never returns an error. Anything other than a string is an invalid format.
func (d *Detection) Evaluate(_ context.Context, solution any) (Result, error) {
	answer, ok := solution.(string)
	if !ok {
		return Result{Success: false, Reason: ReasonInvalidFormat}, nil
	}
	if strings.EqualFold(strings.TrimSpace(answer), d.expected) {
		return Result{Success: true, Reason: ReasonCorrect}, nil
	}
	return Result{Success: false, Reason: ReasonIncorrect}, nil
}
