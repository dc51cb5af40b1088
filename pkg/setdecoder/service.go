package setdecoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/marcosal/setdecoder/pkg/logger"
	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audd"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audio"
	"github.com/marcosal/setdecoder/pkg/utils"
)

type service struct {
	cfg        *Config
	log        Logger
	acquirer   Acquirer
	recognizer Recognizer
}

// New builds a Service from options. A recognizer is constructed from the
// API token unless one is injected; no token and no recognizer is an
// ErrInvalidConfiguration.
func New(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.TrackKey == nil {
		cfg.TrackKey = models.Track.Key
	}

	if cfg.Recognizer == nil {
		if cfg.APIToken == "" {
			return nil, fmt.Errorf("%w: recognition API token is required",
				models.ErrInvalidConfiguration)
		}
		clientOpts := []audd.Option{
			audd.WithMaxAttempts(cfg.MaxAttempts),
			audd.WithLogger(cfg.Logger),
		}
		if cfg.HTTPClient != nil {
			clientOpts = append(clientOpts, audd.WithHTTPClient(cfg.HTTPClient))
		}
		cfg.Recognizer = audd.NewClient(cfg.APIToken, clientOpts...)
	}
	if cfg.Acquirer == nil {
		cfg.Acquirer = audio.NewAcquirer(cfg.SampleRate, cfg.Logger)
	}

	return &service{
		cfg:        cfg,
		log:        cfg.Logger,
		acquirer:   cfg.Acquirer,
		recognizer: cfg.Recognizer,
	}, nil
}

// Run executes one identification pipeline: acquire, segment, recognize,
// assemble. See Service.Run for the result contract.
func (s *service) Run(ctx context.Context, sourceURL string, interval time.Duration, observer ProgressObserver) (*models.Result, error) {
	if interval == 0 {
		interval = s.cfg.DefaultInterval
	}
	if err := audio.ValidateInterval(interval); err != nil {
		return failedResult(err), err
	}

	workDir, cleanup, err := utils.ScopedTempDir(s.cfg.TempDir, "setdecoder-*")
	if err != nil {
		err = fmt.Errorf("%w: %v", models.ErrAcquisitionFailed, err)
		return failedResult(err), err
	}
	defer cleanup()

	asset, srcInfo, err := s.acquirer.Acquire(ctx, sourceURL, workDir)
	if err != nil {
		return failedResult(err), err
	}

	setInfo := &models.SetInfo{
		Title:    srcInfo.Title,
		Uploader: srcInfo.Uploader,
		Duration: asset.Duration,
	}
	if setInfo.Title == "" {
		setInfo.Title = sourceURL
	}

	reader, err := audio.NewSegmentReader(asset, interval, s.cfg.SampleWindow, workDir)
	if err != nil {
		return failedResult(err), err
	}
	defer reader.Close()

	total := audio.SegmentCount(asset.Duration, interval)
	s.log.Infof("identifying %q: %s of audio, %d segments every %s",
		setInfo.Title, asset.Duration, total, interval)

	asm := NewAssembler(s.cfg.MissThreshold, s.cfg.TrackKey)
	run := &runState{
		service:  s,
		reader:   reader,
		asm:      asm,
		observer: observer,
		total:    total,
	}

	var runErr error
	if s.cfg.Workers == 1 {
		runErr = run.sequential(ctx)
	} else {
		runErr = run.parallel(ctx, s.cfg.Workers)
	}

	result := &models.Result{
		Tracklist:         asm.Flush(),
		SetInfo:           setInfo,
		SegmentsTotal:     total,
		SegmentsProcessed: run.processed,
	}

	switch {
	case runErr == nil:
		result.Status = models.StatusCompleted
	case errors.Is(runErr, models.ErrQuotaExceeded):
		result.Status = models.StatusPartialQuota
		result.Err = runErr.Error()
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		result.Status = models.StatusCancelled
		result.Err = runErr.Error()
	default:
		// Decode failure mid-stream: segments processed so far still count,
		// but the run did not cover the set.
		result.Status = models.StatusFailed
		result.Err = runErr.Error()
	}

	emitTerminal(observer, run.processed, total, asm, result.Status)
	s.log.Infof("run %s: %d/%d segments, %d tracklist entries",
		result.Status, run.processed, total, len(result.Tracklist))
	return result, runErr
}

func failedResult(err error) *models.Result {
	return &models.Result{Status: models.StatusFailed, Err: err.Error()}
}

// runState carries the per-run loop state shared by the sequential and
// parallel paths.
type runState struct {
	service   *service
	reader    *audio.SegmentReader
	asm       *Assembler
	observer  ProgressObserver
	total     int
	processed int
}

// consume folds one in-order recognition outcome into the run: transient
// recognition failures degrade the segment to unmatched, fatal errors stop
// the run. Returns a non-nil error only for fatal classes.
func (r *runState) consume(ctx context.Context, seg *audio.Segment, ident *models.Identification, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, models.ErrQuotaExceeded):
			return err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			r.service.log.Warnf("segment at %s degraded to unmatched: %v", seg.Start, err)
			ident = &models.Identification{
				SegmentOffset: seg.Start,
				Matched:       false,
				Note:          err.Error(),
			}
		}
	}

	r.asm.Feed(ident)
	r.processed++
	if r.observer != nil {
		r.observer.OnProgress(models.ProgressEvent{
			Processed: r.processed,
			Total:     r.total,
			Latest:    ident,
			Tracklist: r.asm.Snapshot(),
		})
	}
	return nil
}

func (r *runState) sequential(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		seg, err := r.reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		ident, err := r.service.recognizer.Identify(ctx, seg)
		if err := r.consume(ctx, seg, ident, err); err != nil {
			return err
		}
	}
}

// parallel dispatches recognition calls to a bounded worker pool. Results
// complete out of order, so they are buffered by segment index and released
// to the assembler only once every lower-index result has been consumed.
func (r *runState) parallel(ctx context.Context, workers int) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct {
		seg *audio.Segment
	}
	type outcome struct {
		seg   *audio.Segment
		ident *models.Identification
		err   error
	}

	jobs := make(chan job)
	results := make(chan outcome, workers)

	var prodErr error
	var wg sync.WaitGroup

	// Producer: reads segments forward-only and hands them to workers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for {
			seg, err := r.reader.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				prodErr = err
				cancel()
				return
			}
			select {
			case jobs <- job{seg: seg}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for j := range jobs {
				ident, err := r.service.recognizer.Identify(runCtx, j.seg)
				select {
				case results <- outcome{seg: j.seg, ident: ident, err: err}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		workerWG.Wait()
		close(results)
	}()

	pending := make(map[int]outcome)
	next := 0
	var runErr error

	for out := range results {
		pending[out.seg.Index] = out
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if runErr != nil {
				// Already halting; drop buffered later results.
				continue
			}
			if err := r.consume(ctx, o.seg, o.ident, o.err); err != nil {
				runErr = err
				cancel()
			}
		}
	}

	if runErr != nil {
		return runErr
	}
	if prodErr != nil {
		return prodErr
	}
	return ctx.Err()
}

func emitTerminal(observer ProgressObserver, processed, total int, asm *Assembler, status models.Status) {
	if observer == nil {
		return
	}
	observer.OnProgress(models.ProgressEvent{
		Processed: processed,
		Total:     total,
		Tracklist: asm.Snapshot(),
		Terminal:  true,
		Status:    status,
	})
}
