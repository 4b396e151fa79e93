// ABOUTME: Handles reading, discovering and writing M3U/M3U8 playlist files
// ABOUTME: Reads lossy UTF-8 entries in order and writes flattened playlists next to their media

// Package playlist handles M3U/M3U8 playlist files.
// It discovers playlists under a directory, tokenizes them into classified entries,
// and writes rewritten playlists whose local entries point at flat basenames.
package playlist

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"m3u-dump/fsx"
)

// DefaultPatterns are the playlist file globs used when none are configured
var DefaultPatterns = []string{"*.m3u", "*.m3u8"}

const (
	utf8BOM     = "\ufeff"
	maxLineSize = 1024 * 1024
)

// LoadPlaylist reads a playlist file and returns its classified, non-blank entries in order.
// Bytes that are not valid UTF-8 are dropped instead of failing the whole file.
func LoadPlaylist(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist: %w", err)
	}

	defer func() {
		_ = file.Close() // Explicitly ignore error for read-only file
	}()

	entries, err := ParseEntries(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %s: %w", path, err)
	}

	return entries, nil
}

// ParseEntries tokenizes playlist text from r.
// Lines end at \n, \r\n or a bare \r; lines longer than maxLineSize are dropped.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split((&lineSplitter{max: maxLineSize}).split)

	first := true
	for scanner.Scan() {
		line := strings.ToValidUTF8(scanner.Text(), "")
		if first {
			line = strings.TrimPrefix(line, utf8BOM)
			first = false
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entries = append(entries, NewEntry(line))
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// lineSplitter is a bufio.SplitFunc source that accepts all three line
// endings and skips lines that would not fit the scanner buffer
type lineSplitter struct {
	max      int
	skipping bool
}

func (s *lineSplitter) split(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1

		if data[i] == '\r' {
			switch {
			case i+1 < len(data):
				if data[i+1] == '\n' {
					advance++
				}
			case !atEOF && len(data) < s.max:
				// Need one more byte to tell \r from \r\n
				return 0, nil, nil
			}
		}

		if s.skipping {
			// Tail of an oversized line; an empty token keeps the scanner going at EOF
			s.skipping = false

			return advance, data[:0], nil
		}

		return advance, data[:i], nil
	}

	if atEOF {
		if s.skipping {
			s.skipping = false

			return len(data), nil, nil
		}

		return len(data), data, nil
	}

	if len(data) >= s.max {
		s.skipping = true

		return len(data), nil, nil
	}

	return 0, nil, nil
}

// DiscoverPlaylists returns the playlists to process for source.
// A file source is returned as-is without walking; a directory is walked
// recursively and files whose name matches any pattern are returned sorted.
func DiscoverPlaylists(source string, patterns []string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to stat playlist source: %w", err)
	}

	if !info.IsDir() {
		return []string{source}, nil
	}

	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid playlist pattern %q: %w", p, err)
		}
	}

	var paths []string

	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		if MatchesAny(d.Name(), patterns) {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlists in %s: %w", source, err)
	}

	sort.Strings(paths)

	return paths, nil
}

// MatchesAny reports whether a file name matches one of the glob patterns
func MatchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}

	return false
}

// Render returns the rewritten playlist text.
// Comments and URLs are kept verbatim, local entries are reduced to their basename.
func Render(entries []Entry) []byte {
	var buf bytes.Buffer

	for _, e := range entries {
		if e.Kind == KindLocalPath {
			buf.WriteString(Basename(e.Raw))
		} else {
			buf.WriteString(e.Raw)
		}

		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

// WritePlaylist writes entries to destDir/name and returns the target path.
// With dryRun set nothing touches the disk; the path is still returned for logging.
func WritePlaylist(destDir, name string, entries []Entry, dryRun bool) (string, error) {
	target := filepath.Join(destDir, name)
	if dryRun {
		return target, nil
	}

	if err := fsx.WriteFileAtomic(destDir, name, Render(entries)); err != nil {
		return target, fmt.Errorf("failed to write playlist %s: %w", target, err)
	}

	return target, nil
}
