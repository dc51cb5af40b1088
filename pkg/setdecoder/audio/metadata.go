package audio

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"
)

// SourceInfo carries what we learn about the recording from its metadata
// tags. Fields may be empty; the pipeline falls back to placeholders.
type SourceInfo struct {
	Title    string
	Uploader string
	Duration time.Duration
}

type ffprobeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

// Probe reads title/artist tags and the container duration via ffprobe.
// Best-effort only: callers should treat a nil error with empty fields as
// normal for untagged downloads.
func Probe(ctx context.Context, path string) (*SourceInfo, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	info := &SourceInfo{}
	if secs, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	if tags := probe.Format.Tags; tags != nil {
		info.Title = firstNonEmpty(tags["title"], tags["TITLE"])
		info.Uploader = firstNonEmpty(tags["artist"], tags["ARTIST"], tags["uploader"])
	}
	return info, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
