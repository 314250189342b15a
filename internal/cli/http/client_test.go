package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sregrade/internal/conductor/model"

	"github.com/google/go-cmp/cmp"
)

func newConductor(t *testing.T, active bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(model.StatusResponse{Stage: model.StageDetection})
	})
	mux.HandleFunc("GET /get_problem", func(w http.ResponseWriter, _ *http.Request) {
		if !active {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"detail":"No problem has been started"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(model.ProblemResponse{ProblemID: "hotel_pod_kill"})
	})
	mux.HandleFunc("GET /get_app", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(model.AppInfo{AppName: "Hotel Reservation", Namespace: "hotel-reservation"})
	})
	mux.HandleFunc("POST /submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("User-Agent") != userAgent {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTypedCalls(t *testing.T) {
	srv := newConductor(t, true)
	c := New(srv.URL+"/", time.Second)
	ctx := context.Background()

	stage, err := c.Status(ctx)
	if err != nil || stage != model.StageDetection {
		t.Fatalf("status: got %q, %v", stage, err)
	}
	id, err := c.Problem(ctx)
	if err != nil || id != "hotel_pod_kill" {
		t.Fatalf("problem: got %q, %v", id, err)
	}
	app, err := c.App(ctx)
	if err != nil {
		t.Fatalf("app failed: %v", err)
	}
	want := model.AppInfo{AppName: "Hotel Reservation", Namespace: "hotel-reservation"}
	if diff := cmp.Diff(want, app); diff != "" {
		t.Fatalf("app mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorDetail(t *testing.T) {
	srv := newConductor(t, false)
	c := New(srv.URL, time.Second)

	_, err := c.Problem(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Detail != "No problem has been started" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestDoSetsHeadersOnlyWithBody(t *testing.T) {
	srv := newConductor(t, true)
	c := New(srv.URL, time.Second)

	resp, err := c.Do(context.Background(), http.MethodPost, "/submit", nil, []byte(`{"solution":"Yes"}`))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !resp.OK() || string(resp.Body) != `{"solution":"Yes"}` {
		t.Fatalf("unexpected reply %d %s", resp.StatusCode, resp.Body)
	}
	if resp.Detail() != "" {
		t.Fatalf("expected no detail on success")
	}
}

func TestSetters(t *testing.T) {
	c := New("http://127.0.0.1:8000/", time.Second)
	if c.BaseURL() != "http://127.0.0.1:8000" {
		t.Fatalf("trailing slash not trimmed: %s", c.BaseURL())
	}
	c.SetTimeout(0)
	if c.Timeout() != time.Second {
		t.Fatalf("non-positive timeout must be ignored")
	}
	c.SetTimeout(5 * time.Second)
	c.SetBaseURL("http://conductor:9000/")
	if c.Timeout() != 5*time.Second || c.BaseURL() != "http://conductor:9000" {
		t.Fatalf("setters not applied: %s %s", c.BaseURL(), c.Timeout())
	}
}
