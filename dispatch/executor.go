/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidWorkers is returned when an executor is created with a non-positive number of workers.
var ErrInvalidWorkers = errors.New("number of workers must be positive")

// Executor runs submitted work items asynchronously.
type Executor interface {
	// Submit enqueues work for asynchronous execution and returns immediately.
	// If onComplete is not nil, it is called on the worker goroutine after work returns or panics,
	// with a *PanicError in the latter case.
	// Neither work nor onComplete may be called synchronously from Submit.
	Submit(work func(), onComplete func(err error)) *Handle

	// SubmitAndWait enqueues work and blocks until it is finished.
	SubmitAndWait(work func()) error
}

// Handle tracks a single submitted work item.
type Handle struct {
	done chan struct{}
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Done returns a channel that is closed when the work item is finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the error (*PanicError) the work item finished with.
// It must be called only after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

// PanicError is reported when a work item panics.
type PanicError struct {
	Value interface{}
	Stack []byte
}

// Error returns a string representation of the error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("work item panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
