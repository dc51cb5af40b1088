package setdecoder

import (
	"net/http"
	"os"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audio"
)

// Config holds pipeline settings. Construct through New with options.
type Config struct {
	APIToken        string
	TempDir         string
	DefaultInterval time.Duration
	SampleWindow    time.Duration
	SampleRate      int
	MissThreshold   int
	MaxAttempts     int
	Workers         int
	TrackKey        func(models.Track) string
	HTTPClient      *http.Client
	Logger          Logger
	Acquirer        Acquirer
	Recognizer      Recognizer
}

type Option func(*Config)

// WithAPIToken sets the recognition service credential.
func WithAPIToken(token string) Option {
	return func(c *Config) { c.APIToken = token }
}

// WithTempDir sets where per-run scratch directories are created.
func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

// WithInterval sets the default sampling interval used when a run does not
// specify one.
func WithInterval(interval time.Duration) Option {
	return func(c *Config) { c.DefaultInterval = interval }
}

// WithSampleWindow limits how much of each segment is uploaded for
// recognition. Zero uploads the whole segment.
func WithSampleWindow(window time.Duration) Option {
	return func(c *Config) { c.SampleWindow = window }
}

// WithSampleRate sets the rate the source audio is resampled to.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithMissThreshold sets how many consecutive unmatched segments close an
// open tracklist entry.
func WithMissThreshold(n int) Option {
	return func(c *Config) { c.MissThreshold = n }
}

// WithMaxAttempts bounds per-segment recognition retries.
func WithMaxAttempts(n int) Option {
	return func(c *Config) { c.MaxAttempts = n }
}

// WithWorkers enables bounded parallel recognition dispatch. 1 (the
// default) keeps processing strictly sequential.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithTrackKey overrides the dedup identity function. The default is the
// case-insensitive (artist, title) pair.
func WithTrackKey(fn func(models.Track) string) Option {
	return func(c *Config) { c.TrackKey = fn }
}

// WithHTTPClient sets the client used for recognition requests.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = httpc }
}

func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithAcquirer replaces the yt-dlp based acquirer.
func WithAcquirer(a Acquirer) Option {
	return func(c *Config) { c.Acquirer = a }
}

// WithRecognizer replaces the AudD recognition client.
func WithRecognizer(r Recognizer) Option {
	return func(c *Config) { c.Recognizer = r }
}

func defaultConfig() *Config {
	return &Config{
		TempDir:         os.TempDir(),
		DefaultInterval: 30 * time.Second,
		SampleWindow:    15 * time.Second,
		SampleRate:      audio.DefaultSampleRate,
		MissThreshold:   2,
		MaxAttempts:     3,
		Workers:         1,
	}
}
