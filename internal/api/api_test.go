package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jobflow/internal/engine"
	"jobflow/internal/model"
)

type fakeSource struct {
	jobs  []model.Job
	stats engine.Stats
}

func (f fakeSource) Jobs() []model.Job { return f.jobs }

func (f fakeSource) Job(id string) (model.Job, bool) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return model.Job{}, false
}

func (f fakeSource) Stats() engine.Stats { return f.stats }

func newSource() fakeSource {
	retry := time.Now().Add(time.Minute)
	return fakeSource{
		jobs: []model.Job{
			{ID: "job_a", Data: json.RawMessage(`{"name":"Alice"}`), Status: model.StatusPending},
			{ID: "job_b", Data: json.RawMessage(`{"name":"boom"}`), Status: model.StatusFailed, RetryAt: &retry, Attempts: 1},
		},
		stats: engine.Stats{Pending: 1, Retrying: 1, Retried: 1},
	}
}

func get(t *testing.T, src Source, target string) (int, []byte) {
	t.Helper()
	resp, err := New(src).Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("request %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	code, _ := get(t, newSource(), "/healthz")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestListJobsFiltersByState(t *testing.T) {
	code, body := get(t, newSource(), "/jobs?status=retrying")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", code, body)
	}
	var jobs []struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal(body, &jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job_b" || jobs[0].State != "retrying" {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	_, body = get(t, newSource(), "/jobs")
	if err := json.Unmarshal(body, &jobs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
}

func TestListJobsRejectsUnknownStatus(t *testing.T) {
	code, _ := get(t, newSource(), "/jobs?status=dead")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestGetJob(t *testing.T) {
	code, body := get(t, newSource(), "/jobs/job_a")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var j model.Job
	if err := json.Unmarshal(body, &j); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if j.ID != "job_a" || string(j.Data) != `{"name":"Alice"}` {
		t.Fatalf("unexpected job %+v", j)
	}

	code, _ = get(t, newSource(), "/jobs/job_missing")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestStats(t *testing.T) {
	_, body := get(t, newSource(), "/stats")
	var s engine.Stats
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Pending != 1 || s.Retrying != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
