package models

// Status describes how an identification run ended.
type Status string

const (
	// StatusCompleted means every segment was processed.
	StatusCompleted Status = "completed"
	// StatusPartialQuota means the recognition quota ran out mid-set;
	// the tracklist covers everything identified before the halt.
	StatusPartialQuota Status = "partial_quota"
	// StatusCancelled means the caller cancelled the run; the tracklist
	// covers everything identified before the cancellation point.
	StatusCancelled Status = "cancelled"
	// StatusFailed means the run aborted before producing any segment
	// results (bad source, acquisition or decode failure).
	StatusFailed Status = "failed"
)

// Result is the final outcome of one identification run.
type Result struct {
	Status            Status
	Tracklist         []TracklistEntry
	SetInfo           *SetInfo
	SegmentsTotal     int
	SegmentsProcessed int
	Err               string // error note for non-completed runs
}

// ProgressEvent is emitted to the registered observer after each processed
// segment, strictly in segment order and exactly once per segment. The
// terminal event carries the final status.
type ProgressEvent struct {
	Processed int
	Total     int
	Latest    *Identification  // nil on the terminal event
	Tracklist []TracklistEntry // entries assembled so far, open entry included
	Terminal  bool
	Status    Status // set on the terminal event only
}
