package model_test

import (
	"encoding/json"
	"testing"

	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/oracle"

	"github.com/google/go-cmp/cmp"
)

func TestInsertNeverOverwrites(t *testing.T) {
	r := model.NewResults()
	if !r.Insert(model.KeyDetection, oracle.Result{Success: true, Reason: oracle.ReasonCorrect}) {
		t.Fatalf("first insert must succeed")
	}
	if r.Insert(model.KeyDetection, oracle.Result{Success: false, Reason: oracle.ReasonIncorrect}) {
		t.Fatalf("duplicate insert must be refused")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", r.Len())
	}
	got, _ := r.Get(model.KeyDetection)
	res, ok := got.(oracle.Result)
	if !ok || !res.Success || res.Reason != oracle.ReasonCorrect {
		t.Fatalf("first value must be kept, got %#v", got)
	}
}

func TestMarshalKeepsInsertionOrder(t *testing.T) {
	r := model.NewResults()
	r.Insert(model.KeyNoopDetection, oracle.Result{Success: true, Reason: oracle.ReasonCorrect})
	r.Insert(model.KeyDetection, oracle.Result{Success: false, Reason: oracle.ReasonIncorrect})
	r.Insert(model.KeyTTD, 12.5)
	r.Insert(model.KeyAborted, "timeout")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"NOOP Detection":{"reason":"Correct","success":true},` +
		`"Detection":{"reason":"Incorrect","success":false},"TTD":12.5,"Aborted":"timeout"}`
	if string(data) != want {
		t.Fatalf("unexpected encoding\nwant %s\ngot  %s", want, data)
	}

	var keys []string
	for k := range r.All() {
		keys = append(keys, k)
	}
	wantKeys := []string{model.KeyNoopDetection, model.KeyDetection, model.KeyTTD, model.KeyAborted}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Fatalf("iteration order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantKeys, r.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalEmpty(t *testing.T) {
	data, err := json.Marshal(model.NewResults())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != "{}" {
		t.Fatalf("expected {}, got %s", data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := oracle.Result{Success: true, Reason: oracle.ReasonCorrect}.With("pods", []string{"geo-1"})
	outer := oracle.Result{Success: true}.
		With("Detection", inner).
		With("meta", map[string]any{"targets": []any{"geo"}})

	r := model.NewResults()
	r.Insert(model.KeyMitigation, outer)
	clone := r.Clone()

	outer.Extra["meta"].(map[string]any)["targets"].([]any)[0] = "changed"
	outer.Extra["Detection"].(oracle.Result).Extra["pods"].([]string)[0] = "changed"
	outer.Extra["added"] = true
	if !clone.Insert("Extra key", 1) || !r.Insert("Other key", 2) {
		t.Fatalf("inserts on either side must succeed")
	}

	got, _ := clone.Get(model.KeyMitigation)
	res := got.(oracle.Result)
	if _, ok := res.Extra["added"]; ok {
		t.Fatalf("clone shares the Extra map")
	}
	if v := res.Extra["meta"].(map[string]any)["targets"].([]any)[0]; v != "geo" {
		t.Fatalf("clone shares a nested map, got %v", v)
	}
	if v := res.Extra["Detection"].(oracle.Result).Extra["pods"].([]string)[0]; v != "geo-1" {
		t.Fatalf("clone shares a nested result, got %v", v)
	}
	if clone.Has("Other key") || r.Has("Extra key") {
		t.Fatalf("clone and original must not share keys")
	}
}

func TestStageOrder(t *testing.T) {
	order := []model.Stage{
		model.StageSetup, model.StageNoop, model.StageDetection,
		model.StageLocalization, model.StageMitigation, model.StageDone,
	}
	for i := 1; i < len(order); i++ {
		if !order[i-1].Before(order[i]) || !order[i].After(order[i-1]) {
			t.Fatalf("expected %s before %s", order[i-1], order[i])
		}
	}
	if model.Stage("bogus").Valid() {
		t.Fatalf("unknown stage must be invalid")
	}
	if model.StageSetup.Submittable() || model.StageDone.Submittable() || !model.StageNoop.Submittable() {
		t.Fatalf("unexpected submittable set")
	}
}
