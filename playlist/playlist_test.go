// ABOUTME: Tests for M3U playlist reading, discovery and writing
// ABOUTME: Verifies lossy decoding, blank line handling, pattern matching and flattened output

package playlist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// TestLoadPlaylist verifies M3U parsing
func TestLoadPlaylist(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectRaw   []string
		expectKinds []Kind
	}{
		{
			name:        "simple playlist",
			content:     "Artist/Album/01 Track.mp3\nArtist/Album/02 Track.mp3\n",
			expectRaw:   []string{"Artist/Album/01 Track.mp3", "Artist/Album/02 Track.mp3"},
			expectKinds: []Kind{KindLocalPath, KindLocalPath},
		},
		{
			name:        "extended m3u with url",
			content:     "#EXTM3U\n#EXTINF:123,Song\n/music/song.mp3\nhttp://radio.example.com/live\n",
			expectRaw:   []string{"#EXTM3U", "#EXTINF:123,Song", "/music/song.mp3", "http://radio.example.com/live"},
			expectKinds: []Kind{KindComment, KindComment, KindLocalPath, KindURL},
		},
		{
			name:        "blank lines and surrounding whitespace",
			content:     "\n   \n  a.mp3  \r\n\r\n\tb.mp3\n",
			expectRaw:   []string{"a.mp3", "b.mp3"},
			expectKinds: []Kind{KindLocalPath, KindLocalPath},
		},
		{
			name:        "bare CR",
			content:     "#EXTM3U\r#EXTINF:1,A\r/music/a.mp3\r",
			expectRaw:   []string{"#EXTM3U", "#EXTINF:1,A", "/music/a.mp3"},
			expectKinds: []Kind{KindComment, KindComment, KindLocalPath},
		},
		{
			name:        "mixed line endings",
			content:     "a.mp3\r\nb.mp3\rc.mp3\nd.mp3",
			expectRaw:   []string{"a.mp3", "b.mp3", "c.mp3", "d.mp3"},
			expectKinds: []Kind{KindLocalPath, KindLocalPath, KindLocalPath, KindLocalPath},
		},
		{
			name:        "byte order mark",
			content:     "\ufeff#EXTM3U\na.mp3\n",
			expectRaw:   []string{"#EXTM3U", "a.mp3"},
			expectKinds: []Kind{KindComment, KindLocalPath},
		},
		{
			name:        "invalid utf-8 dropped",
			content:     "caf\xe9.mp3\nok.mp3\n",
			expectRaw:   []string{"caf.mp3", "ok.mp3"},
			expectKinds: []Kind{KindLocalPath, KindLocalPath},
		},
		{
			name:    "empty file",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpFile := filepath.Join(t.TempDir(), "test.m3u8")

			if err := os.WriteFile(tmpFile, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			entries, err := LoadPlaylist(tmpFile)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(entries) != len(tt.expectRaw) {
				t.Fatalf("Expected %d entries, got %d", len(tt.expectRaw), len(entries))
			}

			for i, e := range entries {
				if e.Raw != tt.expectRaw[i] {
					t.Errorf("Entry %d: expected raw %q, got %q", i, tt.expectRaw[i], e.Raw)
				}

				if e.Original != e.Raw {
					t.Errorf("Entry %d: original %q should equal raw %q right after parsing", i, e.Original, e.Raw)
				}

				if e.Kind != tt.expectKinds[i] {
					t.Errorf("Entry %d: expected kind %v, got %v", i, tt.expectKinds[i], e.Kind)
				}
			}
		})
	}
}

// TestParseEntriesOversizedLine verifies a line past the buffer limit is dropped without failing the file
func TestParseEntriesOversizedLine(t *testing.T) {
	long := strings.Repeat("x", maxLineSize+10)

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"in the middle", "a.mp3\n" + long + "\nb.mp3\n", []string{"a.mp3", "b.mp3"}},
		{"with CRLF", "a.mp3\r\n" + long + "\r\nb.mp3\r\n", []string{"a.mp3", "b.mp3"}},
		{"at end of file", "a.mp3\n" + long, []string{"a.mp3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseEntries(strings.NewReader(tt.content))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			var got []string
			for _, e := range entries {
				got = append(got, e.Raw)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("entries = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestLoadPlaylistNonExistent verifies error handling for missing files
func TestLoadPlaylistNonExistent(t *testing.T) {
	entries, err := LoadPlaylist("/nonexistent/path/to/playlist.m3u8")
	if err == nil {
		t.Error("Expected error for nonexistent file, got none")
	}

	if len(entries) != 0 {
		t.Errorf("Expected 0 entries for failed read, got %d", len(entries))
	}
}

func TestDiscoverPlaylists(t *testing.T) {
	root := t.TempDir()

	files := []string{
		"b/list.m3u8",
		"a/list.m3u",
		"a/deeper/mix.m3u",
		"notes.txt",
		"a/cover.jpg",
		"z.m3u",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	got, err := DiscoverPlaylists(root, nil)
	if err != nil {
		t.Fatalf("DiscoverPlaylists failed: %v", err)
	}

	want := []string{
		filepath.Join(root, "a/deeper/mix.m3u"),
		filepath.Join(root, "a/list.m3u"),
		filepath.Join(root, "b/list.m3u8"),
		filepath.Join(root, "z.m3u"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DiscoverPlaylists() = %v, want %v", got, want)
	}

	got, err = DiscoverPlaylists(root, []string{"*.m3u8"})
	if err != nil {
		t.Fatalf("DiscoverPlaylists failed: %v", err)
	}

	if len(got) != 1 || got[0] != filepath.Join(root, "b/list.m3u8") {
		t.Errorf("pattern *.m3u8 matched %v", got)
	}
}

func TestDiscoverPlaylistsFileSource(t *testing.T) {
	// A file source is used directly even if it does not match any pattern
	p := filepath.Join(t.TempDir(), "playlist.txt")
	if err := os.WriteFile(p, []byte("a.mp3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := DiscoverPlaylists(p, []string{"*.m3u"})
	if err != nil {
		t.Fatalf("DiscoverPlaylists failed: %v", err)
	}

	if len(got) != 1 || got[0] != p {
		t.Errorf("DiscoverPlaylists(file) = %v, want [%s]", got, p)
	}
}

func TestDiscoverPlaylistsBadPattern(t *testing.T) {
	if _, err := DiscoverPlaylists(t.TempDir(), []string{"[a-"}); err == nil {
		t.Error("Expected error for malformed pattern, got none")
	}
}

// TestWritePlaylist verifies local entries are flattened and other lines kept verbatim
func TestWritePlaylist(t *testing.T) {
	entries := []Entry{
		NewEntry("#EXTM3U"),
		NewEntry("#EXTINF:123,Artist - Song"),
		NewEntry("/old/disk/Artist/Album/01 Song.mp3").WithRaw("/music/Artist/01 Song.mp3"),
		NewEntry(`C:\Music\Other\02 Track.flac`),
		NewEntry("https://cdn.example.com/stream?id=1"),
	}

	dir := t.TempDir()

	target, err := WritePlaylist(dir, "mix.m3u8", entries, false)
	if err != nil {
		t.Fatalf("WritePlaylist failed: %v", err)
	}

	if target != filepath.Join(dir, "mix.m3u8") {
		t.Errorf("target = %s", target)
	}

	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	want := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:123,Artist - Song",
		"01 Song.mp3",
		"02 Track.flac",
		"https://cdn.example.com/stream?id=1",
	}, "\n") + "\n"
	if string(b) != want {
		t.Errorf("playlist content =\n%s\nwant\n%s", string(b), want)
	}
}

func TestWritePlaylistDryRun(t *testing.T) {
	dir := t.TempDir()

	target, err := WritePlaylist(dir, "mix.m3u", []Entry{NewEntry("a.mp3")}, true)
	if err != nil {
		t.Fatalf("WritePlaylist failed: %v", err)
	}

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Errorf("dry-run wrote %s", target)
	}
}

// TestRoundTrip verifies write then read preserves order and kinds
func TestRoundTrip(t *testing.T) {
	entries := []Entry{
		NewEntry("#EXTINF:1,One"),
		NewEntry("01 Ignite.mp3"),
		NewEntry("http://example.com/stream"),
		NewEntry("04 The Hills.mp3"),
	}

	dir := t.TempDir()

	target, err := WritePlaylist(dir, "roundtrip.m3u", entries, false)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := LoadPlaylist(target)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !reflect.DeepEqual(got, entries) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, entries)
	}
}
