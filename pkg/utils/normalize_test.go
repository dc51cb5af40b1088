package utils

import (
	"testing"
	"time"
)

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		name   string
		artist string
		title  string
		want   string
	}{
		{
			name:   "lowercases and trims",
			artist: "  Daft Punk ",
			title:  "One More Time",
			want:   "daft punk - one more time",
		},
		{
			name:   "strips parenthesized qualifier",
			artist: "Bicep",
			title:  "Glue (Extended Mix)",
			want:   "bicep - glue",
		},
		{
			name:   "strips bracketed qualifier and edition words",
			artist: "Overmono",
			title:  "So U Kno [VIP Edit]",
			want:   "overmono - so u kno",
		},
		{
			name:   "drops bare edition words",
			artist: "Four Tet",
			title:  "Baby Remix",
			want:   "four tet - baby",
		},
		{
			name:   "strips punctuation",
			artist: "R.O.S.S.",
			title:  "It's Yours!",
			want:   "ross - its yours",
		},
		{
			name:   "empty artist yields empty key",
			artist: "",
			title:  "Something",
			want:   "",
		},
		{
			name:   "title reduced to nothing yields empty key",
			artist: "Someone",
			title:  "(Remix)",
			want:   "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTrackName(tc.artist, tc.title); got != tc.want {
				t.Errorf("NormalizeTrackName(%q, %q) = %q, want %q",
					tc.artist, tc.title, got, tc.want)
			}
		})
	}
}

func TestNormalizeTrackNameCollapsesVariants(t *testing.T) {
	a := NormalizeTrackName("Artist", "Tune (Original Mix)")
	b := NormalizeTrackName("artist", "Tune (Radio Edit)")
	if a == "" || a != b {
		t.Errorf("expected variants to collapse to the same key, got %q and %q", a, b)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{30 * time.Second, "00:30"},
		{90 * time.Second, "01:30"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Hour, "01:00:00"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}

	for _, tc := range tests {
		if got := FormatTimestamp(tc.d); got != tc.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
