// ABOUTME: Playlist entry model and line classification
// ABOUTME: Splits playlist lines into comments, remote URLs and local path references

package playlist

import (
	"strings"
)

// Kind identifies what a playlist line refers to
type Kind int

const (
	// KindLocalPath is a relative or absolute path to a media file
	KindLocalPath Kind = iota
	// KindComment is an #EXTM3U header or #EXTINF metadata line
	KindComment
	// KindURL is an http:// or https:// stream or file reference
	KindURL
)

// String returns the lower-case name used in logs and reports
func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindURL:
		return "url"
	default:
		return "local"
	}
}

// Entry is one non-blank line of a playlist
type Entry struct {
	Raw      string // Trimmed line, or the replacement path once resolved
	Original string // Line as read from the playlist (kept for reporting)
	Kind     Kind
}

// NewEntry classifies a trimmed line
func NewEntry(line string) Entry {
	return Entry{Raw: line, Original: line, Kind: Classify(line)}
}

// WithRaw returns a copy of e pointing at a replacement value, keeping Original
func (e Entry) WithRaw(raw string) Entry {
	e.Raw = raw

	return e
}

// Resolved reports whether the entry's Raw value differs from what was read
func (e Entry) Resolved() bool {
	return e.Raw != e.Original
}

// Classify determines the kind of a playlist line without touching the filesystem.
// Only #EXTINF and #EXTM3U lines count as comments; every other line that is not
// an http(s) URL is treated as a local path.
func Classify(line string) Kind {
	s := strings.TrimLeft(line, " \t")

	if strings.HasPrefix(s, "#EXTINF") || strings.HasPrefix(s, "#EXTM3U") {
		return KindComment
	}

	if hasPrefixFold(s, "http://") || hasPrefixFold(s, "https://") {
		return KindURL
	}

	return KindLocalPath
}

// IsComment reports whether line is an #EXTINF or #EXTM3U line
func IsComment(line string) bool {
	return Classify(line) == KindComment
}

// Basename returns the last path element of p, treating both '/' and '\' as
// separators so that playlists written on Windows resolve anywhere
func Basename(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}

	return p
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
