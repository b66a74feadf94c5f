package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

const maxSafeNameLen = 64

var keyCounter atomic.Int64

// NewStoreKey returns a process-unique key such as an in-memory store name,
// built from prefix and the test name so keys are traceable per test. Long
// names are truncated and suffixed with a hash of the full name.
func NewStoreKey(prefix, tname string) string {
	safe := strings.ReplaceAll(tname, "/", "-_-")
	if len(safe) > maxSafeNameLen {
		sum := sha256.Sum256([]byte(tname))
		safe = safe[:maxSafeNameLen-9] + "-" + hex.EncodeToString(sum[:4])
	}
	return fmt.Sprintf("%s-%s-%d", prefix, safe, keyCounter.Add(1))
}
