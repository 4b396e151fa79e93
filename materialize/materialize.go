// ABOUTME: Places resolved audio files into the destination directory
// ABOUTME: Supports byte copies, hard links and symbolic links with skip-existing and dry-run

// Package materialize copies or links playlist media into a flat destination directory.
package materialize

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"m3u-dump/fsx"
	"m3u-dump/playlist"
)

// LinkMode selects how a file is placed in the destination
type LinkMode string

const (
	ModeCopy     LinkMode = "copy"
	ModeHardlink LinkMode = "hardlink"
	ModeSymlink  LinkMode = "symlink"
)

// DefaultLinkMode is used for empty or unknown modes
const DefaultLinkMode = ModeCopy

// ParseLinkMode maps a configured name to a LinkMode
func ParseLinkMode(s string) (LinkMode, bool) {
	switch LinkMode(s) {
	case ModeCopy, ModeHardlink, ModeSymlink:
		return LinkMode(s), true
	default:
		return DefaultLinkMode, false
	}
}

// Outcome is the single result recorded for each local entry that reaches materialization
type Outcome int

const (
	Copied Outcome = iota
	HardLinked
	SymLinked
	SkippedExisting
	SkippedMissing
	DryRun
)

// String returns the detail type recorded in the run report
func (o Outcome) String() string {
	switch o {
	case Copied:
		return "copied"
	case HardLinked:
		return "hardlink"
	case SymLinked:
		return "symlink"
	case SkippedExisting:
		return "skip_existing"
	case SkippedMissing:
		return "skip_missing"
	case DryRun:
		return "dryrun"
	default:
		return "unknown"
	}
}

// Linked reports whether the outcome counts as a link rather than a copy
func (o Outcome) Linked() bool {
	return o == HardLinked || o == SymLinked
}

// Placed reports whether the outcome wrote something to the destination
func (o Outcome) Placed() bool {
	return o == Copied || o.Linked()
}

// OpError wraps a failed placement with the operation and both paths
type OpError struct {
	Op  string
	Src string
	Dst string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("failed to %s %s to %s: %v", e.Op, e.Src, e.Dst, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// SameFileError reports that source and destination are the same file
type SameFileError struct {
	Path string
}

func (e *SameFileError) Error() string {
	return fmt.Sprintf("source and destination are the same file: %s", e.Path)
}

// Options configure a Materializer
type Options struct {
	Mode         LinkMode
	SkipExisting bool
	DryRun       bool
}

// Materializer places files according to its options
type Materializer struct {
	mode         LinkMode
	skipExisting bool
	dryRun       bool

	link func(oldname, newname string) error
}

// New creates a Materializer; an unknown link mode falls back to copy
func New(opts Options) *Materializer {
	mode, _ := ParseLinkMode(string(opts.Mode))

	return &Materializer{
		mode:         mode,
		skipExisting: opts.SkipExisting,
		dryRun:       opts.DryRun,
		link:         os.Link,
	}
}

// Mode returns the effective link mode
func (m *Materializer) Mode() LinkMode {
	return m.mode
}

// Materialize places src into dstDir under its basename and returns the outcome
// and the destination path. The checks run in order: missing source, existing
// destination (when skipping), dry-run, then the actual placement.
func (m *Materializer) Materialize(src, dstDir string) (Outcome, string, error) {
	dst := filepath.Join(dstDir, playlist.Basename(src))

	srcInfo, err := os.Stat(src)
	if err != nil || srcInfo.IsDir() {
		return SkippedMissing, dst, nil
	}

	_, dstErr := os.Lstat(dst)
	dstExists := dstErr == nil

	if dstExists && m.skipExisting {
		return SkippedExisting, dst, nil
	}

	if m.dryRun {
		return DryRun, dst, nil
	}

	if dstExists && samePath(src, dst) {
		return 0, dst, &OpError{Op: string(m.mode), Src: src, Dst: dst, Err: &SameFileError{Path: dst}}
	}

	switch m.mode {
	case ModeHardlink:
		if err := replace(dst, dstExists, func() error { return m.link(src, dst) }); err != nil {
			return 0, dst, &OpError{Op: "hardlink", Src: src, Dst: dst, Err: fsx.ClassifyLinkError("link", src, dst, err)}
		}

		return HardLinked, dst, nil

	case ModeSymlink:
		target, err := filepath.Abs(src)
		if err != nil {
			return 0, dst, &OpError{Op: "symlink", Src: src, Dst: dst, Err: err}
		}

		if err := replace(dst, dstExists, func() error { return os.Symlink(target, dst) }); err != nil {
			return 0, dst, &OpError{Op: "symlink", Src: src, Dst: dst, Err: err}
		}

		return SymLinked, dst, nil

	default:
		if err := fsx.CopyFile(src, dst); err != nil {
			return 0, dst, &OpError{Op: "copy", Src: src, Dst: dst, Err: err}
		}

		return Copied, dst, nil
	}
}

// replace removes an existing destination before creating the link
func replace(dst string, exists bool, create func() error) error {
	if exists {
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return create()
}

// samePath reports whether src and dst name the same directory entry.
// Replacing dst would then destroy the source.
func samePath(src, dst string) bool {
	a, err := canonical(src)
	if err != nil {
		return false
	}

	b, err := canonical(dst)
	if err != nil {
		return false
	}

	return a == b
}

// canonical resolves symlinks in the parent directory but not in the final element
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	return filepath.Join(dir, filepath.Base(abs)), nil
}
