// Package testutil holds shared helpers for snipbox tests: polling for
// asynchronous state, unique per-test names, platform checks and a
// standalone event loop.
package testutil

import "time"

// PollingInterval is the default interval between condition checks in Poll
// and WaitForState.
const PollingInterval = 10 * time.Millisecond

// AsyncSettleTimeout bounds how long a test waits for a snippet's
// asynchronous result, a fetch round trip or a loop job to complete. Runs
// under the race detector on loaded CI machines take several times longer
// than locally, so it is generous.
const AsyncSettleTimeout = 5 * time.Second
