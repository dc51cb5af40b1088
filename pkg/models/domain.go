package models

import (
	"strings"
	"time"
)

// Track is one identified music track. Two tracks are considered the same
// for tracklist purposes when title and artist match case-insensitively.
type Track struct {
	Title       string // Track title
	Artist      string // Artist name
	Album       string // Album name (may be empty)
	ReleaseDate string // Release date as reported by the service (may be empty)
	Links       Links  // Streaming-provider links
}

// Links holds per-provider streaming URLs. An empty field means the
// recognition service did not return a link for that provider.
type Links struct {
	Spotify    string `json:"spotify,omitempty"`
	AppleMusic string `json:"apple_music,omitempty"`
	Deezer     string `json:"deezer,omitempty"`
}

// Key returns the default dedup identity of the track:
// lowercased, whitespace-trimmed (artist, title).
func (t Track) Key() string {
	return strings.ToLower(strings.TrimSpace(t.Artist)) + "\x00" +
		strings.ToLower(strings.TrimSpace(t.Title))
}

// Identification is the recognition result for a single segment.
type Identification struct {
	SegmentOffset time.Duration // start offset of the segment in the set
	Matched       bool
	Track         *Track  // nil when Matched is false
	Confidence    float64 // optional score from the service, 0 when absent
	Note          string  // error note when recognition degraded to unmatched
}

// TracklistEntry is a contiguous span of the set attributed to one track.
// A track that reappears later in the set produces a new entry, never a
// merge with the earlier one.
type TracklistEntry struct {
	Track     Track
	FirstSeen time.Duration // offset of the first segment that matched
	LastSeen  time.Duration // offset of the last segment that matched
}

// SetInfo describes the source recording.
type SetInfo struct {
	Title    string
	Uploader string
	Duration time.Duration
}
