package storage

import (
	"errors"
)

// ErrWouldBlock signals that a non-blocking lock attempt failed because
// another process holds the lock.
var ErrWouldBlock = errors.New("file lock would block")

// ErrStoreLocked is returned when a file-system store is already open in
// another process (or another backend in this one).
var ErrStoreLocked = errors.New("snippet store is locked by another process")
