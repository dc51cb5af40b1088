package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder"
)

// stubService scripts pipeline runs for handler tests. The run blocks on
// release so tests can observe the running state, and reports how it ended.
type stubService struct {
	release chan struct{}
	result  *models.Result
	err     error
	events  []models.ProgressEvent
}

func (s *stubService) Run(ctx context.Context, sourceURL string, interval time.Duration, observer setdecoder.ProgressObserver) (*models.Result, error) {
	for _, ev := range s.events {
		observer.OnProgress(ev)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return &models.Result{
				Status:            models.StatusCancelled,
				SegmentsProcessed: len(s.events),
				Err:               ctx.Err().Error(),
			}, ctx.Err()
		}
	}
	return s.result, s.err
}

func newTestServer(stub *stubService) *Server {
	return NewServer(stub, &ServerConfig{
		Port:           0,
		Interval:       30 * time.Second,
		Workers:        1,
		AllowedOrigins: []string{"*"},
	})
}

func startJob(t *testing.T, srv *Server, body string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleIdentify(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("identify returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp IdentifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding identify response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("identify response missing job id")
	}
	return resp.JobID
}

func waitForState(t *testing.T, srv *Server, jobID, state string) JobStatusResponse {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil)
		rec := httptest.NewRecorder()
		srv.handleJob(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status returned %d: %s", rec.Code, rec.Body.String())
		}
		var status JobStatusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decoding status: %v", err)
		}
		if status.State == state {
			return status
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached state %q, last state %q", state, status.State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestIdentifyValidatesRequest(t *testing.T) {
	srv := newTestServer(&stubService{})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"unsupported host", `{"url": "https://example.com/watch?v=abc"}`},
		{"interval too short", `{"url": "https://youtu.be/abc", "interval_seconds": 5}`},
		{"interval too long", `{"url": "https://youtu.be/abc", "interval_seconds": 90}`},
		{"malformed json", `{"url":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.handleIdentify(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIdentifyRejectsGet(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/identify", nil)
	rec := httptest.NewRecorder()
	srv.handleIdentify(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d, want 405", rec.Code)
	}
}

func TestJobLifecycle(t *testing.T) {
	glue := &models.Track{Title: "Glue", Artist: "Bicep", Links: models.Links{Spotify: "https://open.spotify.com/track/x"}}
	stub := &stubService{
		events: []models.ProgressEvent{
			{
				Processed: 1,
				Total:     4,
				Latest:    &models.Identification{Matched: true, Track: glue},
				Tracklist: []models.TracklistEntry{{Track: *glue}},
			},
		},
		result: &models.Result{
			Status:            models.StatusCompleted,
			SegmentsProcessed: 4,
			SegmentsTotal:     4,
			Tracklist:         []models.TracklistEntry{{Track: *glue, LastSeen: 90 * time.Second}},
		},
	}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://www.youtube.com/watch?v=abc"}`)
	status := waitForState(t, srv, jobID, JobStateCompleted)

	if status.Processed != 4 || status.Total != 4 {
		t.Errorf("progress = %d/%d, want 4/4", status.Processed, status.Total)
	}
	if len(status.Tracklist) != 1 || status.Tracklist[0].Title != "Glue" {
		t.Errorf("tracklist = %+v", status.Tracklist)
	}
	if status.Tracklist[0].SpotifyURL == "" {
		t.Error("provider link missing from tracklist DTO")
	}
}

func TestJobStatusWhileRunning(t *testing.T) {
	stub := &stubService{
		release: make(chan struct{}),
		events: []models.ProgressEvent{
			{Processed: 2, Total: 10, Latest: &models.Identification{Matched: false, Note: "no match"}},
		},
		result: &models.Result{Status: models.StatusCompleted},
	}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://youtu.be/abc", "interval_seconds": 15}`)

	// The progress event is delivered from the job goroutine, so poll.
	var status JobStatusResponse
	deadline := time.After(2 * time.Second)
	for status.Processed != 2 {
		status = waitForState(t, srv, jobID, JobStateRunning)
		select {
		case <-deadline:
			t.Fatalf("progress never reached 2, status %+v", status)
		case <-time.After(5 * time.Millisecond):
		}
	}
	if status.Total != 10 {
		t.Errorf("total = %d, want 10", status.Total)
	}
	if status.Latest == nil || status.Latest.Matched {
		t.Errorf("latest = %+v, want unmatched", status.Latest)
	}
	close(stub.release)
	waitForState(t, srv, jobID, JobStateCompleted)
}

func TestJobCancellation(t *testing.T) {
	stub := &stubService{
		release: make(chan struct{}), // never closed; only cancel ends the run
		result:  &models.Result{Status: models.StatusCompleted},
	}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://youtu.be/abc"}`)
	waitForState(t, srv, jobID, JobStateRunning)

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+jobID, nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel returned %d: %s", rec.Code, rec.Body.String())
	}

	waitForState(t, srv, jobID, JobStateCancelled)
}

func TestStatusAlias(t *testing.T) {
	stub := &stubService{result: &models.Result{Status: models.StatusCompleted}}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://youtu.be/abc"}`)
	waitForState(t, srv, jobID, JobStateCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/status/"+jobID, nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status alias returned %d: %s", rec.Code, rec.Body.String())
	}
	var status JobStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.JobID != jobID {
		t.Errorf("job id = %q, want %q", status.JobID, jobID)
	}
}

func TestListJobs(t *testing.T) {
	stub := &stubService{result: &models.Result{Status: models.StatusCompleted}}
	srv := newTestServer(stub)

	first := startJob(t, srv, `{"url": "https://youtu.be/abc"}`)
	second := startJob(t, srv, `{"url": "https://youtu.be/def"}`)
	waitForState(t, srv, first, JobStateCompleted)
	waitForState(t, srv, second, JobStateCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/", nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp ListJobsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if resp.Count != 2 || len(resp.Jobs) != 2 {
		t.Errorf("list = %+v, want 2 jobs", resp)
	}
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
}

func TestExportConflictsWhileRunning(t *testing.T) {
	stub := &stubService{
		release: make(chan struct{}),
		result:  &models.Result{Status: models.StatusCompleted},
	}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://youtu.be/abc"}`)
	waitForState(t, srv, jobID, JobStateRunning)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/export", nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("export while running returned %d, want 409", rec.Code)
	}
	close(stub.release)
	waitForState(t, srv, jobID, JobStateCompleted)
}

func TestExportFinishedJob(t *testing.T) {
	stub := &stubService{
		result: &models.Result{
			Status: models.StatusCompleted,
			Tracklist: []models.TracklistEntry{
				{Track: models.Track{Title: "Glue", Artist: "Bicep"}, FirstSeen: 0, LastSeen: 30 * time.Second},
			},
		},
	}
	srv := newTestServer(stub)

	jobID := startJob(t, srv, `{"url": "https://youtu.be/abc"}`)
	waitForState(t, srv, jobID, JobStateCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/export", nil)
	rec := httptest.NewRecorder()
	srv.handleJob(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export returned %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, jobID) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	parsed, err := setdecoder.ParseTracklist(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("exported document does not parse: %v", err)
	}
	if len(parsed.Tracklist) != 1 || parsed.Tracklist[0].Track.Title != "Glue" {
		t.Errorf("exported tracklist = %+v", parsed.Tracklist)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(&stubService{})
	handler := srv.setupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/identify", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight returned %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS allow-origin header")
	}
}
