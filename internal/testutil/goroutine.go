package testutil

import (
	"runtime"
	"testing"
	"time"
)

// AssertNoGoroutineLeaks checks that the goroutine count returns to baseline
// within a deadline. Capture and playback both spawn goroutines that must
// exit on Stop/Close.
func AssertNoGoroutineLeaks(t *testing.T, baseline, margin int) {
	t.Helper()
	if !WaitUntil(5*time.Second, func() bool {
		return runtime.NumGoroutine() <= baseline+margin
	}) {
		t.Errorf("goroutine leak: baseline=%d, current=%d, margin=%d",
			baseline, runtime.NumGoroutine(), margin)
	}
}

// WaitUntil polls cond every 50ms until it returns true or the deadline
// passes. Returns whether cond became true.
func WaitUntil(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return cond()
}
