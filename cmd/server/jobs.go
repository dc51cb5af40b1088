package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcosal/setdecoder/pkg/models"
)

// Job states. A job is running until its pipeline returns; terminal states
// mirror the result status.
const (
	JobStateRunning   = "running"
	JobStateCompleted = string(models.StatusCompleted)
	JobStatePartial   = string(models.StatusPartialQuota)
	JobStateCancelled = string(models.StatusCancelled)
	JobStateFailed    = string(models.StatusFailed)
)

// Job tracks one identification pipeline run.
type Job struct {
	ID        string
	SourceURL string
	Interval  time.Duration
	CreatedAt time.Time

	cancel context.CancelFunc

	mu        sync.RWMutex
	state     string
	processed int
	total     int
	latest    *models.Identification
	tracklist []models.TracklistEntry
	result    *models.Result
	errMsg    string
}

func newJob(sourceURL string, interval time.Duration, cancel context.CancelFunc) *Job {
	return &Job{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Interval:  interval,
		CreatedAt: time.Now(),
		cancel:    cancel,
		state:     JobStateRunning,
	}
}

// OnProgress implements setdecoder.ProgressObserver.
func (j *Job) OnProgress(ev models.ProgressEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.processed = ev.Processed
	j.total = ev.Total
	if ev.Latest != nil {
		j.latest = ev.Latest
	}
	j.tracklist = ev.Tracklist
}

// Finish records the pipeline outcome and moves the job to a terminal state.
func (j *Job) Finish(result *models.Result, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
	if result != nil {
		j.state = string(result.Status)
		j.processed = result.SegmentsProcessed
		j.total = result.SegmentsTotal
		j.tracklist = result.Tracklist
		j.errMsg = result.Err
	} else {
		j.state = JobStateFailed
		if err != nil {
			j.errMsg = err.Error()
		}
	}
}

// Cancel requests cancellation of the running pipeline. Safe to call more
// than once and after the job finished.
func (j *Job) Cancel() {
	j.cancel()
}

// Status returns a consistent snapshot for API responses.
func (j *Job) Status() JobStatusResponse {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobStatusResponse{
		JobID:     j.ID,
		State:     j.state,
		SourceURL: j.SourceURL,
		Processed: j.processed,
		Total:     j.total,
		Latest:    identificationDTO(j.latest),
		Tracklist: tracklistDTOs(j.tracklist),
		Error:     j.errMsg,
	}
}

// Result returns the final result, or nil while the job is running.
func (j *Job) Result() *models.Result {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// Registry is an in-memory job store.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}
