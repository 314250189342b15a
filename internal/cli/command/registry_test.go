package command

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	commands := Registry()
	cases := []struct {
		line    string
		name    string
		arg     string
		matched bool
	}{
		{line: "status", name: "status", matched: true},
		{line: "  STATUS  ", name: "status", matched: true},
		{line: `submit("Yes")`, name: Submit, arg: `"Yes"`, matched: true},
		{line: `submit(["geo", "user"])`, name: Submit, arg: `["geo", "user"]`, matched: true},
		{line: "submit()", name: Submit, arg: "", matched: true},
		{line: `submit "No"`, name: Submit, arg: `"No"`, matched: true},
		{line: "kubectl get pods", matched: false},
		{line: "statusx", matched: false},
	}
	for _, tc := range cases {
		got, ok := Resolve(commands, tc.line)
		if ok != tc.matched {
			t.Fatalf("Resolve(%q) matched=%v, want %v", tc.line, ok, tc.matched)
		}
		if !ok {
			continue
		}
		if got.Command.Name != tc.name || got.Arg != tc.arg {
			t.Fatalf("Resolve(%q) = %q %q, want %q %q", tc.line, got.Command.Name, got.Arg, tc.name, tc.arg)
		}
	}
}

func TestBuildRequest(t *testing.T) {
	commands := Registry()

	line, _ := Resolve(commands, "app")
	req, err := BuildRequest(line)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	if req.Method != http.MethodGet || req.Path != "/get_app" || req.Body != nil {
		t.Fatalf("unexpected request: %+v", req)
	}

	line, _ = Resolve(commands, "status now")
	if _, err := BuildRequest(line); err == nil {
		t.Fatalf("expected error for arguments on a GET command")
	}

	line, _ = Resolve(commands, `submit(["geo"])`)
	req, err = BuildRequest(line)
	if err != nil {
		t.Fatalf("BuildRequest failed: %v", err)
	}
	var body map[string]string
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"solution": `["geo"]`}, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	want := []string{"app", "health", "problem", "status", "submit"}
	if diff := cmp.Diff(want, Names(Registry())); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
