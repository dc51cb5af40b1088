package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultSampleRate is the rate the source audio is resampled to before
// segmentation. The recognition service accepts anything reasonable; mono
// 44.1 kHz keeps per-segment uploads small without hurting match quality.
const DefaultSampleRate = 44100

// ToMonoWAV converts any audio file ffmpeg can read into a mono 16-bit PCM
// WAV at the given sample rate. The output is written to a .tmp file first
// and renamed into place so a killed conversion never leaves a readable
// half-written WAV behind.
func ToMonoWAV(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
	}

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("moving converted WAV into place: %w", err)
	}
	return nil
}
