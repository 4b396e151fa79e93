// ABOUTME: Tests for atomic writes and file copies
// ABOUTME: Verifies temp files never survive a write, failed or not

package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomic(dir, "a.m3u", []byte("hello\n")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.m3u"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if string(b) != "hello\n" {
		t.Errorf("content = %q, want %q", string(b), "hello\n")
	}

	assertNoTemp(t, dir)
}

func TestWriteFileAtomicRenameFailure(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(_, _ string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.m3u", []byte("x")); err == nil {
		t.Fatal("Expected error, got none")
	}

	if _, err := os.Stat(filepath.Join(dir, "a.m3u")); !os.IsNotExist(err) {
		t.Errorf("final file should not exist, stat err = %v", err)
	}

	assertNoTemp(t, dir)
}

func TestCopyFileOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp3")
	dst := filepath.Join(dir, "dst.mp3")

	if err := os.WriteFile(src, []byte("new audio"), 0o640); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(dst, []byte("stale content that is longer"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}

	if string(b) != "new audio" {
		t.Errorf("content = %q, want %q", string(b), "new audio")
	}

	assertNoTemp(t, dir)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()

	err := CopyFile(filepath.Join(dir, "nope.mp3"), filepath.Join(dir, "out.mp3"))
	if !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func assertNoTemp(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
