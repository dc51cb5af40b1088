package utils

import (
	"regexp"
	"strings"
)

// Words that distinguish pressings of the same tune rather than the tune
// itself. Stripped before comparing, so "Track (Extended Mix)" and
// "Track (Radio Edit)" collapse to the same key.
var editionWords = map[string]struct{}{
	"remix": {}, "edit": {}, "bootleg": {}, "mix": {}, "version": {},
	"extended": {}, "original": {}, "radio": {}, "club": {}, "dub": {},
	"instrumental": {}, "vip": {}, "flip": {}, "rework": {}, "remaster": {},
	"remastered": {}, "feat": {}, "ft": {}, "featuring": {}, "prod": {},
	"produced": {},
}

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	symbolRe  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// NormalizeTrackName reduces an (artist, title) pair to a canonical
// "artist - title" form for fuzzy comparison: lowercase, parenthesized and
// bracketed qualifiers removed, edition words dropped, punctuation stripped.
// Returns "" when either part is empty.
func NormalizeTrackName(artist, title string) string {
	artist = strings.ToLower(strings.TrimSpace(artist))
	title = strings.ToLower(strings.TrimSpace(title))
	if artist == "" || title == "" {
		return ""
	}

	title = bracketRe.ReplaceAllString(parenRe.ReplaceAllString(title, ""), "")

	artist = stripEditionWords(symbolRe.ReplaceAllString(artist, ""))
	title = stripEditionWords(symbolRe.ReplaceAllString(title, ""))
	if artist == "" || title == "" {
		return ""
	}

	return artist + " - " + title
}

func stripEditionWords(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if _, drop := editionWords[f]; !drop {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
