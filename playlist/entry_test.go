// ABOUTME: Tests for entry classification and basename extraction
// ABOUTME: Includes Windows-style paths and mixed-case URL schemes

package playlist

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{"#EXTM3U", KindComment},
		{"#EXTINF:123,Artist - Title", KindComment},
		{"   #EXTINF:-1,Radio", KindComment},
		{"#extinf:1,lower case is not metadata", KindLocalPath},
		{"#EXTGRP:Group", KindLocalPath},
		{"http://example.com/a.mp3", KindURL},
		{"HTTPS://Example.com/live", KindURL},
		{"  https://example.com/live", KindURL},
		{"ftp://example.com/a.mp3", KindLocalPath},
		{"/music/a.mp3", KindLocalPath},
		{`C:\Music\a.mp3`, KindLocalPath},
		{"relative/http.mp3", KindLocalPath},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := Classify(tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestBasename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/music/Artist/track.mp3", "track.mp3"},
		{`C:\Music\ArtistA\track.mp3`, "track.mp3"},
		{`\\server\share\mixed/dir\song.flac`, "song.flac"},
		{"track.mp3", "track.mp3"},
		{"dir/", "dir"},
	}

	for _, tt := range tests {
		if got := Basename(tt.in); got != tt.want {
			t.Errorf("Basename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEntryWithRaw(t *testing.T) {
	e := NewEntry("/stale/a.mp3")
	r := e.WithRaw("/music/a.mp3")

	if e.Raw != "/stale/a.mp3" {
		t.Errorf("WithRaw mutated the receiver: %q", e.Raw)
	}

	if r.Original != "/stale/a.mp3" || r.Raw != "/music/a.mp3" || !r.Resolved() {
		t.Errorf("unexpected resolved entry %+v", r)
	}

	if e.Resolved() {
		t.Error("fresh entry reported as resolved")
	}
}
