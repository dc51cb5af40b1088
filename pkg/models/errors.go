package models

import "errors"

// Error taxonomy for an identification run. Fatal classes abort the run;
// everything else degrades the affected segment to unmatched.
var (
	// ErrInvalidConfiguration is returned for a bad interval or other bad
	// settings, before any acquisition or segmentation starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedSource is returned when the URL host is not a
	// recognized audio source.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrAcquisitionFailed covers download and extraction failures.
	ErrAcquisitionFailed = errors.New("audio acquisition failed")

	// ErrDecode is returned when the acquired audio cannot be sliced.
	ErrDecode = errors.New("audio decode failed")

	// ErrQuotaExceeded is returned when the recognition service reports
	// its usage cap reached. Never retried; the run halts with whatever
	// was assembled so far.
	ErrQuotaExceeded = errors.New("recognition quota exceeded")
)
