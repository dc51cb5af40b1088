package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/marcosal/setdecoder/pkg/models"
)

// Allowed range for the segmentation interval.
const (
	MinInterval = 15 * time.Second
	MaxInterval = 60 * time.Second
)

// ValidateInterval rejects intervals outside [MinInterval, MaxInterval]
// before any acquisition or decode work starts.
func ValidateInterval(interval time.Duration) error {
	if interval < MinInterval || interval > MaxInterval {
		return fmt.Errorf("%w: interval %s outside [%s, %s]",
			models.ErrInvalidConfiguration, interval, MinInterval, MaxInterval)
	}
	return nil
}

// Asset is a handle to decoded audio of known total duration. It lives for
// one identification run and points at a file inside the run's scratch dir.
type Asset struct {
	Path        string
	SampleRate  int
	NumChans    int
	BitDepth    int
	TotalFrames int64
	Duration    time.Duration
}

// Segment is one slice of the source audio, submitted as a single
// recognition unit. Samples holds WAV-encoded bytes; when a sample window
// is configured only the leading window of the slice is encoded, while
// Start/Length still describe the full slice.
type Segment struct {
	Index   int
	Start   time.Duration
	Length  time.Duration
	Samples []byte
}

// OpenAsset validates a PCM WAV file and reads its format information.
func OpenAsset(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file",
			models.ErrDecode, filepath.Base(path))
	}
	if dec.NumChans == 0 || dec.SampleRate == 0 || dec.BitDepth == 0 {
		return nil, fmt.Errorf("%w: missing format information", models.ErrDecode)
	}

	dur, err := dec.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: reading duration: %v", models.ErrDecode, err)
	}

	rate := int(dec.SampleRate)
	frames := int64(dur.Seconds()*float64(rate) + 0.5)

	return &Asset{
		Path:        path,
		SampleRate:  rate,
		NumChans:    int(dec.NumChans),
		BitDepth:    int(dec.BitDepth),
		TotalFrames: frames,
		Duration:    framesToDuration(frames, rate),
	}, nil
}

// SegmentCount returns how many segments a run over total duration will
// produce, counting a trailing partial segment.
func SegmentCount(total, interval time.Duration) int {
	if total <= 0 {
		return 0
	}
	return int((total + interval - 1) / interval)
}

// SegmentReader is a forward-only, single-consumption iterator over
// interval-sized slices of an asset. Slices cover [0, Duration)
// contiguously; the final slice may be shorter than the interval.
type SegmentReader struct {
	asset        *Asset
	f            *os.File
	dec          *wav.Decoder
	scratchDir   string
	framesPerSeg int
	windowFrames int
	frameOffset  int64
	index        int
	done         bool
}

// NewSegmentReader opens the asset for segmentation. sampleWindow limits how
// much of each slice is encoded for upload; zero (or a window of at least the
// interval) means the whole slice. Scratch files live in scratchDir and are
// removed as soon as each segment's bytes are in memory.
func NewSegmentReader(asset *Asset, interval, sampleWindow time.Duration, scratchDir string) (*SegmentReader, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}

	f, err := os.Open(asset.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a valid WAV file",
			models.ErrDecode, filepath.Base(asset.Path))
	}

	framesPerSeg := framesIn(interval, asset.SampleRate)
	windowFrames := framesPerSeg
	if sampleWindow > 0 && sampleWindow < interval {
		windowFrames = framesIn(sampleWindow, asset.SampleRate)
	}

	return &SegmentReader{
		asset:        asset,
		f:            f,
		dec:          dec,
		scratchDir:   scratchDir,
		framesPerSeg: framesPerSeg,
		windowFrames: windowFrames,
	}, nil
}

// Next returns the next segment, or io.EOF at the end of the audio.
func (r *SegmentReader) Next() (*Segment, error) {
	if r.done {
		return nil, io.EOF
	}

	format := &audio.Format{
		NumChannels: r.asset.NumChans,
		SampleRate:  r.asset.SampleRate,
	}
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, r.framesPerSeg*r.asset.NumChans),
		SourceBitDepth: r.asset.BitDepth,
	}

	n, err := r.dec.PCMBuffer(buf)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: reading PCM data: %v", models.ErrDecode, err)
	}
	if n == 0 {
		r.done = true
		r.Close()
		return nil, io.EOF
	}

	frames := n / r.asset.NumChans
	start := framesToDuration(r.frameOffset, r.asset.SampleRate)
	end := framesToDuration(r.frameOffset+int64(frames), r.asset.SampleRate)

	upload := buf.Data[:frames*r.asset.NumChans]
	if frames > r.windowFrames {
		upload = upload[:r.windowFrames*r.asset.NumChans]
	}

	samples, err := r.encodeSlice(upload, format)
	if err != nil {
		r.Close()
		return nil, err
	}

	seg := &Segment{
		Index:   r.index,
		Start:   start,
		Length:  end - start,
		Samples: samples,
	}

	r.frameOffset += int64(frames)
	r.index++
	if frames < r.framesPerSeg {
		r.done = true
		r.Close()
	}
	return seg, nil
}

// Close releases the underlying file. Safe to call more than once; Next
// closes the reader itself once the audio is exhausted.
func (r *SegmentReader) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// encodeSlice writes the slice as a scratch WAV file and returns its bytes.
// The wav encoder needs an io.WriteSeeker to backfill chunk sizes, so an
// on-disk scratch file is used and removed right away.
func (r *SegmentReader) encodeSlice(data []int, format *audio.Format) ([]byte, error) {
	path := filepath.Join(r.scratchDir, fmt.Sprintf("segment_%d.wav", r.index))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: creating scratch segment: %v", models.ErrDecode, err)
	}
	defer os.Remove(path)

	enc := wav.NewEncoder(f, format.SampleRate, r.asset.BitDepth, format.NumChannels, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         format,
		Data:           data,
		SourceBitDepth: r.asset.BitDepth,
	}); err != nil {
		enc.Close()
		f.Close()
		return nil, fmt.Errorf("%w: encoding segment: %v", models.ErrDecode, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: finalizing segment: %v", models.ErrDecode, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing scratch segment: %v", models.ErrDecode, err)
	}

	return os.ReadFile(path)
}

func framesIn(d time.Duration, rate int) int {
	return int(int64(rate) * int64(d) / int64(time.Second))
}

// framesToDuration computes offsets from frame counts so that consecutive
// segment lengths telescope and sum exactly to the asset duration.
func framesToDuration(frames int64, rate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
