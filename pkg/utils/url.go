package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// supportedHosts are the URL hosts the acquirer knows how to pull audio from.
var supportedHosts = []string{
	"youtube.com",
	"youtu.be",
	"soundcloud.com",
	"mixcloud.com",
}

// IsSupportedSource reports whether the URL points at a host the downloader
// can extract audio from.
func IsSupportedSource(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, h := range supportedHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// CleanSourceURL strips playlist/radio parameters from YouTube URLs so only
// the single video is downloaded. Non-YouTube URLs pass through unchanged.
func CleanSourceURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	host := strings.ToLower(u.Host)
	isYouTube := host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
	isShort := host == "youtu.be" || strings.HasSuffix(host, ".youtu.be")
	if !isYouTube && !isShort {
		return rawURL
	}

	if id, err := ExtractVideoID(rawURL); err == nil {
		return "https://www.youtube.com/watch?v=" + id
	}
	return rawURL
}

// ExtractVideoID pulls the video ID out of a YouTube URL.
func ExtractVideoID(youtubeURL string) (string, error) {
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if strings.Contains(u.Host, "youtu.be") {
		id := strings.TrimPrefix(u.Path, "/")
		if idx := strings.Index(id, "?"); idx != -1 {
			id = id[:idx]
		}
		if id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if strings.Contains(u.Host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			if videoID := u.Query().Get("v"); videoID != "" {
				return videoID, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				if id := strings.TrimPrefix(u.Path, prefix); id != "" {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
}
