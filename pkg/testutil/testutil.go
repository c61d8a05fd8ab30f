// Package testutil holds shared test helpers: write-fault injection,
// deadlock guards and an in-process fake of the platform API.
package testutil

import (
	"errors"
	"testing"
	"time"
)

// ErrFault is returned by injected failures.
var ErrFault = errors.New("testutil: injected fault")

// FailingWriter accepts Limit bytes and then fails. A zero Limit fails
// the first write.
type FailingWriter struct {
	Limit   int
	written int
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	room := w.Limit - w.written
	if len(p) <= room {
		w.written += len(p)
		return len(p), nil
	}
	if room < 0 {
		room = 0
	}
	w.written += room
	return room, ErrFault
}

// Written reports how many bytes were accepted.
func (w *FailingWriter) Written() int { return w.written }

// AssertTimeout fails the test when fn has not returned within d.
func AssertTimeout(t testing.TB, name string, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		t.Fatalf("%s: still running after %v", name, d)
	}
}
