// Package audd is a client for the AudD audio recognition HTTP API.
// One Identify call submits one segment and consumes one unit of the
// account's external quota.
package audd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audio"
)

// DefaultEndpoint is the public AudD recognition endpoint.
const DefaultEndpoint = "https://api.audd.io/"

// errorCodeLimitReached is AudD's "daily limit reached" error code.
const errorCodeLimitReached = 901

// returnFields asks AudD for per-provider streaming links alongside the
// basic match metadata.
const returnFields = "spotify,apple_music,deezer"

// Logger is the logging surface the client needs.
type Logger interface {
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Client sends segments to the recognition service with bounded retries and
// exponential backoff on transient failures. Quota exhaustion is never
// retried and surfaces as models.ErrQuotaExceeded.
type Client struct {
	endpoint    string
	token       string
	httpc       *http.Client
	maxAttempts int
	backoffBase time.Duration
	log         Logger
}

// Option configures a Client.
type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithMaxAttempts bounds retries of transient failures per segment.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay; each retry doubles it.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

func WithLogger(log Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		endpoint:    DefaultEndpoint,
		token:       token,
		httpc:       &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 3,
		backoffBase: time.Second,
		log:         nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse mirrors the AudD response envelope.
type apiResponse struct {
	Status string     `json:"status"`
	Error  *apiError  `json:"error"`
	Result *apiResult `json:"result"`
}

type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

type apiResult struct {
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	ReleaseDate string  `json:"release_date"`
	Score       float64 `json:"score"`
	Spotify     *struct {
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	} `json:"spotify"`
	AppleMusic *struct {
		URL string `json:"url"`
	} `json:"apple_music"`
	Deezer *struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	} `json:"deezer"`
}

// Identify submits one segment's samples for recognition. It issues exactly
// one request per attempt and never resubmits after a definitive answer, so
// a segment costs at most maxAttempts quota units and usually one.
//
// A "no match" answer is not an error: it yields Matched == false with a nil
// error. Transient failures are retried; once attempts are exhausted the
// last error is returned and the caller decides how to degrade.
func (c *Client) Identify(ctx context.Context, seg *audio.Segment) (*models.Identification, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.backoffBase << (attempt - 2)
			c.log.Debugf("retrying segment %d in %s (attempt %d/%d)",
				seg.Index, delay, attempt, c.maxAttempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		ident, err := c.identifyOnce(ctx, seg)
		if err == nil {
			return ident, nil
		}
		if !retryable(err) {
			return nil, err
		}
		c.log.Warnf("transient recognition failure at %s: %v", seg.Start, err)
		lastErr = err
	}
	return nil, fmt.Errorf("recognition failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) identifyOnce(ctx context.Context, seg *audio.Segment) (*models.Identification, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if err := mw.WriteField("api_token", c.token); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if err := mw.WriteField("return", returnFields); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	part, err := mw.CreateFormFile("file", fmt.Sprintf("segment_%d.wav", seg.Index))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if _, err := part.Write(seg.Samples); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP 429", models.ErrQuotaExceeded)
	case resp.StatusCode >= 500:
		return nil, &transientError{err: fmt.Errorf("service returned HTTP %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("service returned HTTP %d: %s", resp.StatusCode, raw)
	}

	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		return nil, &transientError{err: fmt.Errorf("parsing response: %v", err)}
	}

	if ar.Status == "error" {
		if ar.Error != nil && ar.Error.Code == errorCodeLimitReached {
			return nil, fmt.Errorf("%w: %s", models.ErrQuotaExceeded, ar.Error.Message)
		}
		msg := "unknown API error"
		if ar.Error != nil {
			msg = fmt.Sprintf("API error %d: %s", ar.Error.Code, ar.Error.Message)
		}
		return nil, &transientError{err: fmt.Errorf("%s", msg)}
	}

	if ar.Result == nil {
		return &models.Identification{SegmentOffset: seg.Start, Matched: false}, nil
	}
	return &models.Identification{
		SegmentOffset: seg.Start,
		Matched:       true,
		Track:         trackFromResult(ar.Result),
		Confidence:    ar.Result.Score,
	}, nil
}

// trackFromResult maps the AudD result into a Track, keeping absent provider
// links empty rather than failing.
func trackFromResult(r *apiResult) *models.Track {
	t := &models.Track{
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		ReleaseDate: r.ReleaseDate,
	}
	if r.Spotify != nil {
		t.Links.Spotify = r.Spotify.ExternalURLs.Spotify
	}
	if r.AppleMusic != nil {
		t.Links.AppleMusic = r.AppleMusic.URL
	}
	if r.Deezer != nil {
		if r.Deezer.Link != "" {
			t.Links.Deezer = r.Deezer.Link
		} else if r.Deezer.ID != 0 {
			t.Links.Deezer = fmt.Sprintf("https://www.deezer.com/track/%d", r.Deezer.ID)
		}
	}
	return t
}

// transientError marks failures worth retrying: network errors, 5xx
// responses and non-quota API errors.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Debugf(string, ...any) {}
