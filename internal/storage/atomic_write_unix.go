//go:build !windows

package storage

import (
	"errors"
)

// atomicRenameWindows is never reached on this platform.
func atomicRenameWindows(oldpath, newpath string) error {
	return errors.New("atomicRenameWindows called on non-Windows platform")
}
