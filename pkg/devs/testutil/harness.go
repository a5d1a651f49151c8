// Package testutil ships small harnesses and canned atomic models shared
// across this module's package test suites, grounded on the teacher's
// test.WaitThisOrTimeout and TestInvoker.
package testutil

import "time"

// WaitOrTimeout runs cb on its own goroutine and reports whether it
// returned before duration elapsed, adapted from the teacher's
// WaitThisOrTimeout for use inside individual package tests that need to
// bound a blocking Controller.Run or LP.Run call.
func WaitOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}
