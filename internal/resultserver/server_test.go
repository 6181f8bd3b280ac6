package resultserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"huntmover/internal/coordinator"
	"huntmover/internal/frame"
	"huntmover/internal/geom"
	"huntmover/internal/mover"
	"huntmover/internal/scheduler"
	"huntmover/internal/stack"
	"huntmover/internal/sweep"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(":0", nil, nil)

	groups := [3]*stack.Group{}
	for i := range groups {
		f := frame.New(1, 1, []float64{0.1})
		g, err := stack.NewGroup(i, []*frame.Frame{f})
		if err != nil {
			t.Fatalf("unexpected error building group %d: %v", i, err)
		}
		groups[i] = g
	}
	coord, err := coordinator.InitGroups(coordinator.Config{}, geom.NewCache(), groups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coord.Sweep = sweep.NewState(sweep.Bounds{})
	coord.Movers.Add(mover.Mover{Score: 1.5}, 3)
	sched := scheduler.New(coord, nil)
	s.SetRun(coord, sched)

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/movers", s.handleMovers).Methods("GET")
	r.HandleFunc("/control/{action}", s.handleControl).Methods("POST")

	return s, httptest.NewServer(r)
}

func TestHandleStatusReportsSweepState(t *testing.T) {
	_, ts := testServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.MoverCount != 1 {
		t.Fatalf("expected 1 mover, got %d", got.MoverCount)
	}
}

func TestHandleMoversFormatsPAInDegrees(t *testing.T) {
	_, ts := testServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/movers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	var got []moverResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 mover, got %d", len(got))
	}
}

func TestHandleControlPauseResumeTerminate(t *testing.T) {
	s, ts := testServer(t)
	defer ts.Close()

	for _, action := range []string{"pause", "resume", "terminate"} {
		resp, err := http.Post(ts.URL+"/control/"+action, "application/json", nil)
		if err != nil {
			t.Fatalf("unexpected error posting %s: %v", action, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("action %s: expected 204, got %d", action, resp.StatusCode)
		}
	}
	_ = s
}

func TestHandleControlRejectsUnknownAction(t *testing.T) {
	_, ts := testServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/control/bogus", "application/json", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
