package setdecoder

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/utils"
)

// exportDoc is the stable on-disk tracklist format. Offsets are written
// both as Go duration strings, which round-trip losslessly through
// time.ParseDuration, and as human-readable clock timestamps.
type exportDoc struct {
	Set    *exportSetInfo `json:"set,omitempty"`
	Status models.Status  `json:"status,omitempty"`
	Tracks []exportEntry  `json:"tracks"`
}

type exportSetInfo struct {
	Title    string `json:"title,omitempty"`
	Uploader string `json:"uploader,omitempty"`
	Duration string `json:"duration,omitempty"`
}

type exportEntry struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Album         string `json:"album,omitempty"`
	ReleaseDate   string `json:"release_date,omitempty"`
	FirstSeen     string `json:"first_seen"`
	LastSeen      string `json:"last_seen"`
	Timestamp     string `json:"timestamp"`
	SpotifyURL    string `json:"spotify_url,omitempty"`
	AppleMusicURL string `json:"apple_music_url,omitempty"`
	DeezerURL     string `json:"deezer_url,omitempty"`
}

// ExportTracklist writes a Result's tracklist as indented JSON.
func ExportTracklist(w io.Writer, result *models.Result) error {
	doc := exportDoc{
		Status: result.Status,
		Tracks: make([]exportEntry, 0, len(result.Tracklist)),
	}
	if result.SetInfo != nil {
		doc.Set = &exportSetInfo{
			Title:    result.SetInfo.Title,
			Uploader: result.SetInfo.Uploader,
			Duration: result.SetInfo.Duration.String(),
		}
	}
	for _, entry := range result.Tracklist {
		doc.Tracks = append(doc.Tracks, exportEntry{
			Title:         entry.Track.Title,
			Artist:        entry.Track.Artist,
			Album:         entry.Track.Album,
			ReleaseDate:   entry.Track.ReleaseDate,
			FirstSeen:     entry.FirstSeen.String(),
			LastSeen:      entry.LastSeen.String(),
			Timestamp:     utils.FormatTimestamp(entry.FirstSeen),
			SpotifyURL:    entry.Track.Links.Spotify,
			AppleMusicURL: entry.Track.Links.AppleMusic,
			DeezerURL:     entry.Track.Links.Deezer,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ParseTracklist reads a tracklist previously written by ExportTracklist.
func ParseTracklist(r io.Reader) (*models.Result, error) {
	var doc exportDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse tracklist: %w", err)
	}

	result := &models.Result{Status: doc.Status}
	if doc.Set != nil {
		result.SetInfo = &models.SetInfo{
			Title:    doc.Set.Title,
			Uploader: doc.Set.Uploader,
		}
		if doc.Set.Duration != "" {
			d, err := time.ParseDuration(doc.Set.Duration)
			if err != nil {
				return nil, fmt.Errorf("parse tracklist: set duration: %w", err)
			}
			result.SetInfo.Duration = d
		}
	}
	for i, t := range doc.Tracks {
		first, err := time.ParseDuration(t.FirstSeen)
		if err != nil {
			return nil, fmt.Errorf("parse tracklist: track %d first_seen: %w", i, err)
		}
		last, err := time.ParseDuration(t.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("parse tracklist: track %d last_seen: %w", i, err)
		}
		result.Tracklist = append(result.Tracklist, models.TracklistEntry{
			Track: models.Track{
				Title:       t.Title,
				Artist:      t.Artist,
				Album:       t.Album,
				ReleaseDate: t.ReleaseDate,
				Links: models.Links{
					Spotify:    t.SpotifyURL,
					AppleMusic: t.AppleMusicURL,
					Deezer:     t.DeezerURL,
				},
			},
			FirstSeen: first,
			LastSeen:  last,
		})
	}
	return result, nil
}
