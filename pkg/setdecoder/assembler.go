package setdecoder

import "github.com/marcosal/setdecoder/pkg/models"

// Assembler folds a stream of per-segment identifications into tracklist
// entries. It is a small state machine: either no entry is open, or one
// entry is open with a running count of consecutive misses.
//
// A short run of unmatched segments inside an otherwise-recognized track
// does not fragment it; only missThreshold consecutive misses close the
// open entry, at the last confirmed match offset. A track that reappears
// after another track (or after a long gap) opens a fresh entry.
//
// Feed must be called in segment-offset order.
type Assembler struct {
	keyFn         func(models.Track) string
	missThreshold int
	entries       []models.TracklistEntry
	open          *openEntry
}

type openEntry struct {
	entry   models.TracklistEntry
	key     string
	missRun int
}

// NewAssembler creates an assembler. missThreshold <= 0 falls back to 2.
// keyFn nil falls back to the case-insensitive (artist, title) key.
func NewAssembler(missThreshold int, keyFn func(models.Track) string) *Assembler {
	if missThreshold <= 0 {
		missThreshold = 2
	}
	if keyFn == nil {
		keyFn = models.Track.Key
	}
	return &Assembler{keyFn: keyFn, missThreshold: missThreshold}
}

// Feed consumes one identification.
func (a *Assembler) Feed(id *models.Identification) {
	if id == nil {
		return
	}

	if !id.Matched {
		if a.open == nil {
			return
		}
		a.open.missRun++
		if a.open.missRun >= a.missThreshold {
			a.closeOpen()
		}
		return
	}

	key := a.keyFn(*id.Track)
	if a.open != nil && key == a.open.key {
		a.open.entry.LastSeen = id.SegmentOffset
		a.open.missRun = 0
		return
	}

	a.closeOpen()
	a.open = &openEntry{
		key: key,
		entry: models.TracklistEntry{
			Track:     *id.Track,
			FirstSeen: id.SegmentOffset,
			LastSeen:  id.SegmentOffset,
		},
	}
}

// Flush closes any still-open entry and returns the final tracklist.
func (a *Assembler) Flush() []models.TracklistEntry {
	a.closeOpen()
	return a.entries
}

// Snapshot returns the entries assembled so far, the open entry included.
// Used for live progress; the result is a copy.
func (a *Assembler) Snapshot() []models.TracklistEntry {
	out := make([]models.TracklistEntry, 0, len(a.entries)+1)
	out = append(out, a.entries...)
	if a.open != nil {
		out = append(out, a.open.entry)
	}
	return out
}

func (a *Assembler) closeOpen() {
	if a.open == nil {
		return
	}
	a.entries = append(a.entries, a.open.entry)
	a.open = nil
}
