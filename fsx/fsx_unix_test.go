//go:build unix

package fsx

import (
	"os"
	"syscall"
	"testing"
)

func TestClassifyLinkErrorEXDEV(t *testing.T) {
	err := ClassifyLinkError("link", "/a", "/b", &os.LinkError{Op: "link", Old: "/a", New: "/b", Err: syscall.EXDEV})
	if !IsCrossDevice(err) {
		t.Fatalf("Expected CrossDeviceError, got %T %v", err, err)
	}

	if err := ClassifyLinkError("link", "/a", "/b", os.ErrPermission); IsCrossDevice(err) {
		t.Errorf("permission error classified as cross-device: %v", err)
	}
}
