/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import "time"

// Timer is a scheduled callback that may be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from firing.
	// It returns false if the callback has already fired or the timer has been stopped.
	Stop() bool
}

// Clock is a source of time and delayed callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// RealClock is a Clock backed by the time package.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// After calls callback no earlier than d from now.
// The callback is dispatched onto exec, or called on the timer's own goroutine if exec is nil.
func After(clock Clock, d time.Duration, exec Executor, callback func()) Timer {
	return clock.AfterFunc(d, func() {
		if exec == nil {
			callback()
			return
		}
		exec.Submit(callback, nil)
	})
}
