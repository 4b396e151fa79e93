//go:build unix

// ABOUTME: Cross-device link detection on Unix
// ABOUTME: Matches the EXDEV errno returned by link(2) across filesystems

package fsx

import (
	"errors"
	"syscall"
)

func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
