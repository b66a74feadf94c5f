package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileLock_AcquireAndRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lockFile, err := acquireFileLock(lockPath)
	if err != nil {
		t.Fatalf("acquireFileLock failed: %v", err)
	}
	if lockFile == nil {
		t.Fatal("acquireFileLock returned nil file")
	}

	if err := releaseFileLock(lockFile); err != nil {
		t.Fatalf("releaseFileLock failed: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("lock file was not removed after release")
	}
}

func TestFileLock_DoubleAcquireFails(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lockFile1, err := acquireFileLock(lockPath)
	if err != nil {
		t.Fatalf("first acquireFileLock failed: %v", err)
	}
	defer releaseFileLock(lockFile1)

	lockFile2, err := acquireFileLock(lockPath)
	if err == nil {
		t.Fatal("second acquireFileLock should have failed, but it succeeded")
	}
	if lockFile2 != nil {
		t.Error("second acquireFileLock should not have returned a file handle")
		releaseFileLock(lockFile2)
	}
}

func TestFileLock_ReleaseNilIsSafe(t *testing.T) {
	if err := releaseFileLock(nil); err != nil {
		t.Errorf("releaseFileLock(nil) returned %v", err)
	}
}

func TestFileLock_CannotOpenFile(t *testing.T) {
	fileAsDir := filepath.Join(t.TempDir(), "afile")
	if err := os.WriteFile(fileAsDir, []byte("i am a file"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := acquireFileLock(filepath.Join(fileAsDir, "the.lock")); err == nil {
		t.Fatal("expected an error for a lock path inside a file")
	}
}
