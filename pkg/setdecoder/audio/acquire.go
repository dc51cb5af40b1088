package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lrstanley/go-ytdlp"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/utils"
)

// Logger is the logging surface the acquirer needs.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Acquirer resolves a source URL into a local WAV asset via yt-dlp and
// ffmpeg. All intermediate files land in the directory the caller provides,
// which the pipeline removes when the run ends.
type Acquirer struct {
	sampleRate int
	log        Logger
}

func NewAcquirer(sampleRate int, log Logger) *Acquirer {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	return &Acquirer{sampleRate: sampleRate, log: log}
}

// Acquire downloads the recording behind rawURL, converts it to a mono PCM
// WAV and opens it as an Asset. Unknown hosts fail with ErrUnsupportedSource
// before any network work; download and conversion failures map to
// ErrAcquisitionFailed.
func (a *Acquirer) Acquire(ctx context.Context, rawURL, dir string) (*Asset, *SourceInfo, error) {
	if !utils.IsSupportedSource(rawURL) {
		return nil, nil, fmt.Errorf("%w: %s", models.ErrUnsupportedSource, rawURL)
	}
	cleanURL := utils.CleanSourceURL(rawURL)

	a.log.Infof("downloading audio from %s", cleanURL)

	dl := ytdlp.New().
		NoPlaylist().
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("192K").
		Output(filepath.Join(dir, "download.%(ext)s"))

	if _, err := dl.Run(ctx, cleanURL); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: yt-dlp: %v", models.ErrAcquisitionFailed, err)
	}

	mp3Path := filepath.Join(dir, "download.mp3")
	if _, err := os.Stat(mp3Path); err != nil {
		return nil, nil, fmt.Errorf("%w: downloaded audio not found: %v",
			models.ErrAcquisitionFailed, err)
	}

	info, err := Probe(ctx, mp3Path)
	if err != nil {
		a.log.Warnf("metadata probe failed, continuing without tags: %v", err)
		info = &SourceInfo{}
	}

	wavPath := filepath.Join(dir, "source.wav")
	if err := ToMonoWAV(ctx, mp3Path, wavPath, a.sampleRate); err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: converting to WAV: %v",
			models.ErrAcquisitionFailed, err)
	}
	// The mp3 is not needed once the WAV exists; multi-hour sets are large.
	os.Remove(mp3Path)

	asset, err := OpenAsset(wavPath)
	if err != nil {
		return nil, nil, err
	}
	info.Duration = asset.Duration

	a.log.Infof("acquired %s (%s)", asset.Path, asset.Duration)
	return asset, info, nil
}
