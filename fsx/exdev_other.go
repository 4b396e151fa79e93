//go:build !unix

// ABOUTME: Cross-device link detection on non-Unix platforms
// ABOUTME: Recognizes the Windows not-same-device error

package fsx

import (
	"errors"
	"syscall"
)

// errNotSameDevice is ERROR_NOT_SAME_DEVICE on Windows
const errNotSameDevice = syscall.Errno(17)

func isEXDEV(err error) bool {
	return errors.Is(err, errNotSameDevice)
}
