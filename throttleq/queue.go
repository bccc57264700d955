/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/acronis/go-throttleq/dispatch"
	"github.com/acronis/go-throttleq/log"
)

// Default parameter values for Queue.
const (
	DefaultInterval   = 500 * time.Millisecond
	DefaultMutability = MutabilityAll
	DefaultMonitor    = MonitorConcurrent
)

const defaultLabelPrefix = "throttleq-"

// Opts represents options for Queue.
type Opts struct {
	Mutability Mutability
	Monitor    Monitor

	// Executor runs work items. If it's nil, a serial executor is used for MonitorSerial,
	// and a pool of Workers goroutines is used for MonitorConcurrent.
	Executor dispatch.Executor

	// Workers is the maximum number of goroutines of the default executor for MonitorConcurrent.
	// runtime.NumCPU() is used if it's 0.
	Workers int

	// Clock is used for measuring and scheduling throttle delays. dispatch.RealClock is used if it's nil.
	Clock dispatch.Clock

	Logger           log.FieldLogger
	MetricsCollector MetricsCollector
}

// Queue is a throttled task queue.
// It dispatches submitted work items to the underlying executor in FIFO order,
// keeping the throttle interval between them.
//
// Queue owns its executor; the executor must not be shared with other queues.
// All methods are safe for concurrent use.
type Queue struct {
	label   string
	exec    dispatch.Executor
	control dispatch.Executor // runs delay timer callbacks
	clock   dispatch.Clock
	logger  log.FieldLogger
	metrics MetricsCollector

	mu    sync.Mutex
	state throttleState
}

// New creates a new Queue with the default interval, mutability and monitor.
// If label is empty, it is generated from the creation time.
func New(label string) *Queue {
	q, err := NewWithOpts(label, DefaultInterval, Opts{Mutability: DefaultMutability, Monitor: DefaultMonitor})
	if err != nil {
		panic(fmt.Sprintf("invalid default throttle queue configuration: %v", err))
	}
	return q
}

// NewWithOpts creates a new Queue with the given default interval and options.
func NewWithOpts(label string, interval time.Duration, opts Opts) (*Queue, error) {
	if interval < 0 {
		return nil, fmt.Errorf("%w: negative interval %v", ErrInvalidConfiguration, interval)
	}
	if err := opts.Mutability.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Monitor.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: negative number of workers %d", ErrInvalidConfiguration, opts.Workers)
	}
	if opts.Clock == nil {
		opts.Clock = dispatch.RealClock
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if label == "" {
		label = defaultLabelPrefix + xid.NewWithTime(opts.Clock.Now()).String()
	}
	logger := opts.Logger.With(log.String("throttle_queue", label))

	exec := opts.Executor
	if exec == nil {
		var err error
		if exec, err = makeDefaultExecutor(opts.Monitor, opts.Workers, logger); err != nil {
			return nil, err
		}
	}

	return &Queue{
		label:   label,
		exec:    exec,
		control: dispatch.NewSerialExecutor(),
		clock:   opts.Clock,
		logger:  logger,
		metrics: opts.MetricsCollector,
		state: throttleState{
			defaultInterval: interval,
			mutability:      opts.Mutability,
			monitor:         opts.Monitor,
		},
	}, nil
}

// NewFromConfig creates a new Queue using the given configuration.
// Mutability, Monitor and Workers of opts are overridden by the configuration values.
func NewFromConfig(cfg *Config, opts Opts) (*Queue, error) {
	opts.Mutability = cfg.Mutability
	opts.Monitor = cfg.Monitor
	opts.Workers = cfg.Workers
	return NewWithOpts(cfg.Label, time.Duration(cfg.Interval), opts)
}

func makeDefaultExecutor(monitor Monitor, workers int, logger log.FieldLogger) (dispatch.Executor, error) {
	switch monitor {
	case MonitorSerial:
		workers = 1
	case MonitorConcurrent:
		if workers == 0 {
			workers = runtime.NumCPU()
		}
	}
	exec, err := dispatch.NewPoolExecutorWithOpts(workers, dispatch.PoolExecutorOpts{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return exec, nil
}

// Label returns the label of the queue.
func (q *Queue) Label() string {
	return q.label
}

// DefaultInterval returns the interval used for tasks submitted without an explicit one.
func (q *Queue) DefaultInterval() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state.defaultInterval
}

// SetDefaultInterval changes the interval used for tasks submitted without an explicit one.
// Depending on the queue's mutability, intervals of already pending tasks are changed as well.
// If a task's delay is already in progress, it is shortened or extended, so it lasts the new interval in total.
func (q *Queue) SetDefaultInterval(interval time.Duration) error {
	if interval < 0 {
		return fmt.Errorf("%w: negative interval %v", ErrInvalidConfiguration, interval)
	}

	q.mu.Lock()
	prevInterval := q.state.defaultInterval
	q.state.defaultInterval = interval
	affected := q.rewriteIntervalsLocked(interval)
	mutability := q.state.mutability
	q.pumpLocked()
	q.mu.Unlock()

	q.logger.Info("throttle queue default interval changed",
		log.Duration("prev_interval", prevInterval),
		log.Duration("interval", interval),
		log.String("mutability", mutability.String()),
		log.Int("affected_tasks", affected),
	)
	return nil
}

// Mutability returns the mutability of the queue.
func (q *Queue) Mutability() Mutability {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state.mutability
}

// SetMutability changes the mutability of the queue.
// It affects only further changes of the default interval.
func (q *Queue) SetMutability(mutability Mutability) error {
	if err := mutability.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	q.state.mutability = mutability
	q.mu.Unlock()
	return nil
}

// Monitor returns the monitor of the queue.
func (q *Queue) Monitor() Monitor {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state.monitor
}

// PendingCount returns the number of submitted tasks which are not fully completed yet,
// i.e. either their work items have not returned or their throttle delays have not elapsed.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.state.pending)
}

// PendingTasks returns snapshots of the pending tasks in submission order.
func (q *Queue) PendingTasks() []PendingTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	res := make([]PendingTask, 0, len(q.state.pending))
	for _, t := range q.state.pending {
		res = append(res, PendingTask{SequenceID: t.seq, Interval: t.interval, Explicit: t.explicit, State: t.state})
	}
	return res
}

// String returns a human-readable description of the queue.
// Implements fmt.Stringer interface.
func (q *Queue) String() string {
	if q == nil {
		return "<throttleq.Queue nil>"
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return fmt.Sprintf("<throttleq.Queue %p; label = %q, interval = %s, mutability = %s, monitor = %s, pending = %d>",
		q, q.label, q.state.defaultInterval, q.state.mutability, q.state.monitor, len(q.state.pending))
}

// SubmitAsync submits the work item with the queue's default interval and returns immediately.
func (q *Queue) SubmitAsync(work func()) error {
	_, err := q.submit(0, false, work)
	return err
}

// SubmitAsyncAfter submits the work item with the explicit interval and returns immediately.
// The next task is delayed by the interval instead of the queue's default one.
func (q *Queue) SubmitAsyncAfter(interval time.Duration, work func()) error {
	_, err := q.submit(interval, true, work)
	return err
}

// SubmitSync submits the work item with the queue's default interval
// and blocks until the work item returns and its throttle delay elapses.
// If the work item panics, the *dispatch.PanicError is returned.
// It must not be called from a work item of the same queue.
func (q *Queue) SubmitSync(work func()) error {
	return q.submitAndWait(0, false, work)
}

// SubmitSyncAfter is the same as SubmitSync, but uses the explicit interval.
func (q *Queue) SubmitSyncAfter(interval time.Duration, work func()) error {
	return q.submitAndWait(interval, true, work)
}

func (q *Queue) submitAndWait(interval time.Duration, explicit bool, work func()) error {
	t, err := q.submit(interval, explicit, work)
	if err != nil {
		return err
	}
	<-t.done
	return t.err
}

func (q *Queue) submit(interval time.Duration, explicit bool, work func()) (*task, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil queue", ErrInvalidArgument)
	}
	if work == nil {
		return nil, fmt.Errorf("%w: nil work", ErrInvalidArgument)
	}
	if explicit && interval < 0 {
		return nil, fmt.Errorf("%w: negative interval %v", ErrInvalidArgument, interval)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if !explicit {
		interval = q.state.defaultInterval
	}
	return q.enqueueLocked(interval, explicit, work), nil
}
