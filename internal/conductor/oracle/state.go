package oracle

import "context"

// CheckFunc inspects live state. It returns whether the state is healthy and a short explanation.
type CheckFunc func(ctx context.Context) (bool, string, error)

// StateOracle ignores the submitted solution and grades what it observes.
type StateOracle struct {
	name  string
	check CheckFunc
}

// NewStateOracle wraps a state check as an oracle.
func NewStateOracle(name string, check CheckFunc) *StateOracle {
	return &StateOracle{name: name, check: check}
}

func (s *StateOracle) Name() string {
	return s.name
}

func (s *StateOracle) Evaluate(ctx context.Context, _ any) (Result, error) {
	ok, reason, err := s.check(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: ok, Reason: reason}, nil
}
