// ABOUTME: Filesystem helpers for atomic writes and file copies
// ABOUTME: Writes go to a same-directory temp file that is renamed into place

// Package fsx provides atomic file writing and copying.
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// renameFunc is swapped in tests to simulate rename failures
var renameFunc = os.Rename

// CrossDeviceError reports an operation that cannot span two filesystems (EXDEV)
type CrossDeviceError struct {
	Op  string
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("%s %s -> %s: source and destination are on different volumes: %v", e.Op, e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is or wraps a *CrossDeviceError
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError

	return errors.As(err, &e)
}

// ClassifyLinkError turns an EXDEV failure from os.Link/os.Rename into a *CrossDeviceError
func ClassifyLinkError(op, src, dst string, err error) error {
	if err != nil && isEXDEV(err) {
		return &CrossDeviceError{Op: op, Src: src, Dst: dst, Err: err}
	}

	return err
}

// WriteFileAtomic writes data to dir/name via a temp file and rename, replacing any existing file
func WriteFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}

	return commit(tmp, tmpName, filepath.Join(dir, name), 0o644)
}

// CopyFile copies src to dst byte for byte, replacing dst if it exists.
// The copy lands in a temp file next to dst first, so a failed copy never
// leaves a truncated destination behind.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close() // Explicitly ignore error for read-only file
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	dir := filepath.Dir(dst)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}

	return commit(tmp, tmpName, dst, info.Mode().Perm())
}

func commit(tmp *os.File, tmpName, dst string, perm os.FileMode) error {
	if err := tmp.Chmod(perm); err != nil && runtime.GOOS != "windows" {
		return err
	}

	if err := tmp.Sync(); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := renameFunc(tmpName, dst); err != nil {
		return ClassifyLinkError("rename", tmpName, dst, err)
	}

	return nil
}
