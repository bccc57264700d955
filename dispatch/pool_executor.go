/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-throttleq/log"
)

const logStackSize = 8192

// PoolExecutorOpts contains optional parameters for constructing PoolExecutor.
type PoolExecutorOpts struct {
	// Logger is used for reporting panics of work items. Logging is disabled if it's nil.
	Logger log.FieldLogger

	// PanicHandler, if set, is called on the worker goroutine for every panicked work item.
	PanicHandler func(err *PanicError)
}

// Stats contains counters of the executor.
type Stats struct {
	Queued    int
	Running   int
	Completed uint64
	Panicked  uint64
}

// PoolExecutor runs work items on at most maxWorkers goroutines.
// Work items are taken from a single FIFO, so with one worker they also start (and finish) in submission order.
type PoolExecutor struct {
	maxWorkers   int
	logger       log.FieldLogger
	panicHandler func(err *PanicError)

	mu      sync.Mutex
	tasks   []*poolTask
	workers int

	running   atomic.Int32
	completed atomic.Uint64
	panicked  atomic.Uint64
}

var _ Executor = (*PoolExecutor)(nil)

type poolTask struct {
	work       func()
	onComplete func(err error)
	handle     *Handle
}

// NewSerialExecutor creates a new PoolExecutor with the only worker.
func NewSerialExecutor() *PoolExecutor {
	e, _ := NewPoolExecutorWithOpts(1, PoolExecutorOpts{})
	return e
}

// NewPoolExecutor creates a new PoolExecutor with the given maximum number of workers.
func NewPoolExecutor(maxWorkers int) (*PoolExecutor, error) {
	return NewPoolExecutorWithOpts(maxWorkers, PoolExecutorOpts{})
}

// NewPoolExecutorWithOpts creates a new PoolExecutor with the given maximum number of workers and options.
func NewPoolExecutorWithOpts(maxWorkers int, opts PoolExecutorOpts) (*PoolExecutor, error) {
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, maxWorkers)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &PoolExecutor{
		maxWorkers:   maxWorkers,
		logger:       opts.Logger,
		panicHandler: opts.PanicHandler,
	}, nil
}

// MaxWorkers returns the maximum number of goroutines the executor may run work items on.
func (e *PoolExecutor) MaxWorkers() int {
	return e.maxWorkers
}

// Submit enqueues work for asynchronous execution.
func (e *PoolExecutor) Submit(work func(), onComplete func(err error)) *Handle {
	t := &poolTask{work: work, onComplete: onComplete, handle: newHandle()}

	e.mu.Lock()
	e.tasks = append(e.tasks, t)
	if e.workers < e.maxWorkers {
		e.workers++
		go e.serve()
	}
	e.mu.Unlock()

	return t.handle
}

// SubmitAndWait enqueues work and blocks until it is finished.
func (e *PoolExecutor) SubmitAndWait(work func()) error {
	h := e.Submit(work, nil)
	<-h.Done()
	return h.Err()
}

// Stats returns the current counters of the executor.
func (e *PoolExecutor) Stats() Stats {
	e.mu.Lock()
	queued := len(e.tasks)
	e.mu.Unlock()
	return Stats{
		Queued:    queued,
		Running:   int(e.running.Load()),
		Completed: e.completed.Load(),
		Panicked:  e.panicked.Load(),
	}
}

func (e *PoolExecutor) serve() {
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.workers--
			e.mu.Unlock()
			return
		}
		t := e.tasks[0]
		e.tasks[0] = nil
		e.tasks = e.tasks[1:]
		e.mu.Unlock()

		e.run(t)
	}
}

func (e *PoolExecutor) run(t *poolTask) {
	e.running.Inc()
	err := e.callWork(t.work)
	e.running.Dec()
	e.completed.Inc()

	if err != nil {
		e.panicked.Inc()
		e.logger.Error(fmt.Sprintf("panic: %+v", err.Value), log.Bytes("stack", err.Stack))
		if e.panicHandler != nil {
			e.panicHandler(err)
		}
	}

	var completeErr error
	if err != nil {
		completeErr = err
	}
	if t.onComplete != nil {
		t.onComplete(completeErr)
	}
	t.handle.finish(completeErr)
}

func (e *PoolExecutor) callWork(work func()) (panicErr *PanicError) {
	defer func() {
		if p := recover(); p != nil {
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			panicErr = &PanicError{Value: p, Stack: stack}
		}
	}()
	work()
	return nil
}
