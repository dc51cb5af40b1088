package setdecoder

import (
	"context"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audio"
)

// Service runs the identification pipeline for one DJ set at a time.
type Service interface {
	// Run identifies the tracklist of the recording behind sourceURL,
	// sampling every interval (0 means the configured default). Progress is
	// pushed to observer after every segment, strictly in segment order.
	//
	// The returned Result is non-nil whenever the run produced any state,
	// including partial runs: quota exhaustion and cancellation return the
	// tracklist assembled so far together with a non-nil error.
	Run(ctx context.Context, sourceURL string, interval time.Duration, observer ProgressObserver) (*models.Result, error)
}

// Acquirer resolves a URL into a local audio asset inside dir.
type Acquirer interface {
	Acquire(ctx context.Context, url, dir string) (*audio.Asset, *audio.SourceInfo, error)
}

// Recognizer identifies a single segment against the external service.
type Recognizer interface {
	Identify(ctx context.Context, seg *audio.Segment) (*models.Identification, error)
}

// ProgressObserver receives per-segment progress events. Implementations
// must not block for long; events are delivered from the pipeline goroutine.
type ProgressObserver interface {
	OnProgress(ev models.ProgressEvent)
}

// ProgressFunc adapts a plain function to ProgressObserver.
type ProgressFunc func(ev models.ProgressEvent)

func (f ProgressFunc) OnProgress(ev models.ProgressEvent) { f(ev) }

// Logger is the logging surface the pipeline needs.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
