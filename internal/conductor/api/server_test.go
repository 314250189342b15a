package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sregrade/internal/conductor/api"
	"sregrade/internal/conductor/critical"
	"sregrade/internal/conductor/metrics"
	"sregrade/internal/conductor/model"
	"sregrade/internal/conductor/oracle"
	"sregrade/internal/conductor/problem"
	"sregrade/internal/conductor/service"

	"github.com/gin-gonic/gin"
)

type stubApp struct{}

func (stubApp) Deploy(context.Context) error        { return nil }
func (stubApp) StartWorkload(context.Context) error { return nil }
func (stubApp) Cleanup(context.Context) error       { return nil }
func (stubApp) Namespace() string                   { return "social-network" }
func (stubApp) AppName() string                     { return "Social Network" }
func (stubApp) Description() string                 { return "social graph microservices" }

type stubInjector struct{}

func (stubInjector) Inject(context.Context) error  { return nil }
func (stubInjector) Recover(context.Context) error { return nil }

func newTestServer(t *testing.T) (*api.Server, *service.Conductor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := problem.NewRegistry()
	reg.MustRegister("social_scale_zero", func() (*problem.Problem, error) {
		return problem.New(stubApp{}, stubInjector{},
			problem.WithDetection(oracle.NewDetection("Yes")),
			problem.WithLocalization(oracle.NewLocalization("user-service")),
		), nil
	})
	m := metrics.New(nil)
	c, err := service.NewConductor(service.Config{
		Registry:         reg,
		Guard:            critical.NewGuard(),
		Metrics:          m,
		RequiredBinaries: []string{},
	})
	if err != nil {
		t.Fatalf("new conductor failed: %v", err)
	}
	return api.NewServer(api.Config{Addr: "127.0.0.1:0"}, c, m), c
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s failed: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, out
}

func TestEndpointsBeforeStart(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/status", "/get_app", "/get_problem"} {
		code, body := do(t, srv.Handler(), http.MethodGet, path, "")
		if code != http.StatusBadRequest || body["detail"] != "No problem has been started" {
			t.Fatalf("%s: unexpected response %d %v", path, code, body)
		}
	}
	code, body := do(t, srv.Handler(), http.MethodPost, "/submit", `{"solution":"No"}`)
	if code != http.StatusBadRequest || body["detail"] != "No problem has been started" {
		t.Fatalf("submit: unexpected response %d %v", code, body)
	}
}

func TestSubmitFlowOverHTTP(t *testing.T) {
	srv, c := newTestServer(t)
	h := srv.Handler()
	if err := c.StartProblem(context.Background(), "social_scale_zero"); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	code, body := do(t, h, http.MethodGet, "/get_app", "")
	if code != http.StatusOK || body["app_name"] != "Social Network" || body["namespace"] != "social-network" {
		t.Fatalf("unexpected app info %d %v", code, body)
	}
	code, body = do(t, h, http.MethodGet, "/get_problem", "")
	if code != http.StatusOK || body["problem_id"] != "social_scale_zero" {
		t.Fatalf("unexpected problem %d %v", code, body)
	}

	code, body = do(t, h, http.MethodPost, "/submit", `{}`)
	if code != http.StatusBadRequest || body["detail"] == "" {
		t.Fatalf("expected 400 for missing solution, got %d %v", code, body)
	}

	code, body = do(t, h, http.MethodPost, "/submit", `{"solution":"No"}`)
	if code != http.StatusOK {
		t.Fatalf("noop submit failed: %d %v", code, body)
	}
	if noop, ok := body["NOOP Detection"].(map[string]any); !ok || noop["success"] != true {
		t.Fatalf("unexpected noop verdict %v", body)
	}

	code, body = do(t, h, http.MethodPost, "/submit", `{"solution":"Yes"}`)
	if code != http.StatusOK || body["TTD"] == nil {
		t.Fatalf("detection submit failed: %d %v", code, body)
	}

	code, body = do(t, h, http.MethodPost, "/submit", `{"solution":"[\"user-service\"]"}`)
	if code != http.StatusOK {
		t.Fatalf("localization submit failed: %d %v", code, body)
	}
	loc, _ := body["Localization"].(map[string]any)
	if loc["accuracy"] != float64(100) || loc["success"] != true {
		t.Fatalf("unexpected localization verdict %v", loc)
	}

	code, body = do(t, h, http.MethodGet, "/status", "")
	if code != http.StatusOK || body["stage"] != string(model.StageDone) {
		t.Fatalf("expected done, got %d %v", code, body)
	}

	code, body = do(t, h, http.MethodPost, "/submit", `{"solution":"Yes"}`)
	if code != http.StatusBadRequest || !strings.Contains(body["detail"].(string), "Cannot submit at stage") {
		t.Fatalf("expected stage violation, got %d %v", code, body)
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	srv, c := newTestServer(t)
	h := srv.Handler()
	if err := c.StartProblem(context.Background(), "social_scale_zero"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	answers := []string{"42", "bogus(", "No", "No", "[1, 2]", "[\"db\"]", "Yes", "Yes"}
	last := model.StageSetup
	for _, answer := range answers {
		payload, _ := json.Marshal(map[string]string{"solution": answer})
		do(t, h, http.MethodPost, "/submit", string(payload))
		_, body := do(t, h, http.MethodGet, "/status", "")
		stage := model.Stage(body["stage"].(string))
		if stage.Before(last) {
			t.Fatalf("stage regressed from %s to %s after %q", last, stage, answer)
		}
		last = stage
	}
	if last != model.StageDone {
		t.Fatalf("expected sweep to finish, got %s", last)
	}
}

func TestMetricsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", code, body)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", rec.Code)
	}
}

func TestRequestShutdownIsIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(context.Background(), listener)
	}()

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv.RequestShutdown()
		}()
	}
	wg.Wait()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
	srv.RequestShutdown()
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv.Handler(), http.MethodGet, "/nope", "")
	if code != http.StatusNotFound || body["detail"] != "Not Found" {
		t.Fatalf("unexpected unknown route response %d %v", code, body)
	}
	code, body = do(t, srv.Handler(), http.MethodGet, "/submit", "")
	if code != http.StatusMethodNotAllowed || body["detail"] != "Method Not Allowed" {
		t.Fatalf("unexpected wrong method response %d %v", code, body)
	}
}
