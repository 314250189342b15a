package oracle_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sregrade/internal/conductor/oracle"
)

func TestDetection(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		expected string
		solution any
		success  bool
		reason   string
	}{
		{name: "exact", expected: "Yes", solution: "Yes", success: true, reason: oracle.ReasonCorrect},
		{name: "case and space", expected: "Yes", solution: "  yES \n", success: true, reason: oracle.ReasonCorrect},
		{name: "wrong", expected: "No", solution: "Yes", success: false, reason: oracle.ReasonIncorrect},
		{name: "number", expected: "Yes", solution: 1, success: false, reason: oracle.ReasonInvalidFormat},
		{name: "list", expected: "Yes", solution: []any{"Yes"}, success: false, reason: oracle.ReasonInvalidFormat},
		{name: "nil", expected: "No", solution: nil, success: false, reason: oracle.ReasonInvalidFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := oracle.NewDetection(tc.expected).Evaluate(ctx, tc.solution)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if res.Success != tc.success || res.Reason != tc.reason {
				t.Fatalf("unexpected result: %+v", res)
			}
		})
	}
}

func TestLocalizationScoring(t *testing.T) {
	ctx := context.Background()
	loc := oracle.NewLocalization("a", "b")
	cases := []struct {
		name     string
		solution any
		accuracy float64
		success  bool
		subset   bool
	}{
		{name: "exact", solution: []any{"a", "b"}, accuracy: 100, success: true, subset: true},
		{name: "exact reordered", solution: []any{"b", "a"}, accuracy: 100, success: true, subset: true},
		{name: "half", solution: []any{"a"}, accuracy: 50, success: false, subset: true},
		{name: "bare string", solution: "b", accuracy: 50, success: false, subset: true},
		{name: "miss", solution: []any{"c"}, accuracy: 0, success: false, subset: false},
		{name: "superset", solution: []any{"a", "b", "c"}, accuracy: 0, success: false, subset: false},
		{name: "not a list", solution: 123, accuracy: 0, success: false, subset: false},
		{name: "mixed list", solution: []any{"a", 2}, accuracy: 0, success: false, subset: false},
		{name: "duplicates", solution: []any{"a", "a"}, accuracy: 100, success: true, subset: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := loc.Evaluate(ctx, tc.solution)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if res.Accuracy == nil || *res.Accuracy != tc.accuracy {
				t.Fatalf("expected accuracy %v, got %+v", tc.accuracy, res.Accuracy)
			}
			if res.Success != tc.success {
				t.Fatalf("expected success %v, got %v", tc.success, res.Success)
			}
			if res.Extra["is_subset"] != tc.subset {
				t.Fatalf("expected is_subset %v, got %v", tc.subset, res.Extra["is_subset"])
			}
		})
	}
}

type stubOracle struct {
	name   string
	ok     bool
	err    error
	called int
}

func (s *stubOracle) Name() string { return s.name }

func (s *stubOracle) Evaluate(context.Context, any) (oracle.Result, error) {
	s.called++
	if s.err != nil {
		return oracle.Result{}, s.err
	}
	return oracle.Result{Success: s.ok}, nil
}

func TestCompoundedEvaluatesEverySubOracle(t *testing.T) {
	first := &stubOracle{name: "first", ok: true}
	second := &stubOracle{name: "second", ok: false}
	third := &stubOracle{name: "third", ok: true}
	res, err := oracle.NewCompounded("all", first, second, third).Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if res.Success {
		t.Fatalf("expected overall failure")
	}
	for _, sub := range []*stubOracle{first, second, third} {
		if sub.called != 1 {
			t.Fatalf("expected %s to be evaluated once, got %d", sub.name, sub.called)
		}
		if _, ok := res.Extra[sub.name]; !ok {
			t.Fatalf("missing sub-result for %s", sub.name)
		}
	}
}

func TestCompoundedRecordsSubOracleError(t *testing.T) {
	broken := &stubOracle{name: "probe", err: errors.New("connection refused")}
	again := &stubOracle{name: "probe", ok: true}
	res, err := oracle.NewCompounded("all", broken, again).Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	sub, ok := res.Extra["probe"].(oracle.Result)
	if !ok || sub.Reason != "Oracle error: connection refused" {
		t.Fatalf("unexpected sub-result: %+v", res.Extra["probe"])
	}
	if _, ok := res.Extra["probe#1"]; !ok {
		t.Fatalf("expected duplicate name to be suffixed, got %v", res.Extra)
	}
}

type panicOracle struct{}

func (panicOracle) Name() string { return "panicky" }

func (panicOracle) Evaluate(context.Context, any) (oracle.Result, error) {
	panic("boom")
}

func TestRunConvertsPanic(t *testing.T) {
	res, err := oracle.Run(context.Background(), panicOracle{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.Success || res.Reason != "Oracle error: panicky panicked: boom" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestStateOracleIgnoresSolution(t *testing.T) {
	o := oracle.NewStateOracle("pods-ready", func(context.Context) (bool, string, error) {
		return true, "all pods ready", nil
	})
	res, err := o.Evaluate(context.Background(), "anything")
	if err != nil || !res.Success || res.Reason != "all pods ready" {
		t.Fatalf("unexpected result: %+v err=%v", res, err)
	}
}

func TestResultJSONIsFlat(t *testing.T) {
	res, _ := oracle.NewLocalization("a", "b").Evaluate(context.Background(), "a")
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["success"] != false || decoded["accuracy"] != float64(50) || decoded["is_subset"] != true {
		t.Fatalf("unexpected payload: %s", raw)
	}
}
