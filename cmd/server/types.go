package main

import (
	"fmt"
	"time"

	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder/audio"
	"github.com/marcosal/setdecoder/pkg/utils"
)

// IdentifyRequest is the request body for POST /api/identify
type IdentifyRequest struct {
	// URL is the DJ set recording to identify (required)
	URL string `json:"url" binding:"required"`

	// IntervalSeconds is the sampling interval; 0 uses the server default
	IntervalSeconds int `json:"interval_seconds,omitempty"`
}

// Validate checks if the request is valid
func (r *IdentifyRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !utils.IsSupportedSource(r.URL) {
		return fmt.Errorf("unsupported source URL: %s", r.URL)
	}
	if r.IntervalSeconds != 0 {
		if err := audio.ValidateInterval(r.Interval()); err != nil {
			return fmt.Errorf("interval_seconds must be between %d and %d",
				int(audio.MinInterval.Seconds()), int(audio.MaxInterval.Seconds()))
		}
	}
	return nil
}

// Interval converts the requested interval to a duration
func (r *IdentifyRequest) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// IdentifyResponse is the response for a newly started identification job
type IdentifyResponse struct {
	JobID   string `json:"job_id"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// TracklistEntryDTO represents one deduplicated track in API responses
type TracklistEntryDTO struct {
	Title         string `json:"title"`
	Artist        string `json:"artist"`
	Album         string `json:"album,omitempty"`
	Timestamp     string `json:"timestamp"`
	FirstSeen     string `json:"first_seen"`
	LastSeen      string `json:"last_seen"`
	SpotifyURL    string `json:"spotify_url,omitempty"`
	AppleMusicURL string `json:"apple_music_url,omitempty"`
	DeezerURL     string `json:"deezer_url,omitempty"`
}

// IdentificationDTO is the outcome of the most recent segment
type IdentificationDTO struct {
	Offset  string `json:"offset"`
	Matched bool   `json:"matched"`
	Title   string `json:"title,omitempty"`
	Artist  string `json:"artist,omitempty"`
	Note    string `json:"note,omitempty"`
}

// JobStatusResponse is the response for GET /api/jobs/{id}
type JobStatusResponse struct {
	JobID     string              `json:"job_id"`
	State     string              `json:"state"`
	SourceURL string              `json:"source_url"`
	Processed int                 `json:"segments_processed"`
	Total     int                 `json:"segments_total"`
	Latest    *IdentificationDTO  `json:"latest,omitempty"`
	Tracklist []TracklistEntryDTO `json:"tracklist"`
	Error     string              `json:"error,omitempty"`
}

// ListJobsResponse is the response for GET /api/jobs/
type ListJobsResponse struct {
	Jobs  []JobStatusResponse `json:"jobs"`
	Count int                 `json:"count"`
}

// CancelResponse is the response for DELETE /api/jobs/{id}
type CancelResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func tracklistDTOs(entries []models.TracklistEntry) []TracklistEntryDTO {
	dtos := make([]TracklistEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, TracklistEntryDTO{
			Title:         entry.Track.Title,
			Artist:        entry.Track.Artist,
			Album:         entry.Track.Album,
			Timestamp:     utils.FormatTimestamp(entry.FirstSeen),
			FirstSeen:     entry.FirstSeen.String(),
			LastSeen:      entry.LastSeen.String(),
			SpotifyURL:    entry.Track.Links.Spotify,
			AppleMusicURL: entry.Track.Links.AppleMusic,
			DeezerURL:     entry.Track.Links.Deezer,
		})
	}
	return dtos
}

func identificationDTO(ident *models.Identification) *IdentificationDTO {
	if ident == nil {
		return nil
	}
	dto := &IdentificationDTO{
		Offset:  ident.SegmentOffset.String(),
		Matched: ident.Matched,
		Note:    ident.Note,
	}
	if ident.Track != nil {
		dto.Title = ident.Track.Title
		dto.Artist = ident.Track.Artist
	}
	return dto
}
