package oracle

import "context"

// Localization grades the set of faulty components named by the agent.
type Localization struct {
	expected []string
}

// NewLocalization creates a localization oracle for the expected component names.
func NewLocalization(expected ...string) *Localization {
	return &Localization{expected: append([]string(nil), expected...)}
}

func (l *Localization) Name() string {
	return "localization"
}

// Expected returns a copy of the expected component names.
func (l *Localization) Expected() []string {
	return append([]string(nil), l.expected...)
}

// Evaluate scores the answer. A lone string is treated as a one-element list.
// A subset scores by list length, so duplicate entries count toward accuracy.
func (l *Localization) Evaluate(_ context.Context, solution any) (Result, error) {
	answer, ok := toStrings(solution)
	if !ok {
		return Result{Success: false, Accuracy: accuracy(0), Reason: ReasonInvalidFormat}.With("is_subset", false), nil
	}

	want := setOf(l.expected)
	got := setOf(answer)

	exact := len(got) == len(want)
	subset := true
	for name := range got {
		if _, ok := want[name]; !ok {
			subset = false
			exact = false
			break
		}
	}

	var acc float64
	switch {
	case exact:
		acc = 100
	case subset && len(l.expected) > 0:
		acc = float64(len(answer)) / float64(len(l.expected)) * 100
	}

	success := exact || (subset && len(answer) == len(l.expected))
	reason := ReasonIncorrect
	if success {
		reason = ReasonCorrect
	}
	return Result{Success: success, Accuracy: accuracy(acc), Reason: reason}.With("is_subset", subset), nil
}

func toStrings(solution any) ([]string, bool) {
	switch v := solution.(type) {
	case string:
		return []string{v}, true
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func setOf(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
