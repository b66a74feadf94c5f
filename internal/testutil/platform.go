package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform captures the current test execution environment.
type Platform struct {
	IsUnix    bool
	IsWindows bool
	IsRoot    bool
	UID       int
}

// DetectPlatform inspects the current runtime environment.
//
// Example usage:
//
//	platform := DetectPlatform(t)
//	SkipIfRoot(t, platform, "chmod-based failure simulation")
func DetectPlatform(t *testing.T) Platform {
	t.Helper()
	uid := os.Geteuid()
	platform := Platform{
		IsUnix:    runtime.GOOS != "windows",
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    uid == 0,
		UID:       uid,
	}
	t.Logf("Platform detection: OS=%s, UID=%d, IsRoot=%v", runtime.GOOS, uid, platform.IsRoot)
	return platform
}

// SkipIfRoot skips tests that simulate permission failures, which root
// bypasses.
func SkipIfRoot(t *testing.T, platform Platform, reason string) {
	t.Helper()
	if platform.IsRoot {
		t.Skipf("Skipping test - %s (requires non-root user, running as UID 0)", reason)
	}
}

// SkipIfWindows skips unix-only tests.
func SkipIfWindows(t *testing.T, platform Platform, reason string) {
	t.Helper()
	if platform.IsWindows {
		t.Skipf("Skipping test - %s (Windows platform detected)", reason)
	}
}
