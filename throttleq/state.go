/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import (
	"time"

	"github.com/acronis/go-throttleq/dispatch"
	"github.com/acronis/go-throttleq/log"
)

// TaskState is a state of the pending task.
type TaskState int

// Task states.
const (
	// TaskStateQueued means the task waits for its turn to be dispatched to the executor.
	TaskStateQueued TaskState = iota
	// TaskStateRunning means the task's work item has been dispatched and has not returned yet.
	TaskStateRunning
	// TaskStateDelaying means the task's work item has returned, and its throttle delay has not elapsed yet.
	TaskStateDelaying
)

// String returns a string representation of the task state.
// Implements fmt.Stringer interface.
func (s TaskState) String() string {
	switch s {
	case TaskStateQueued:
		return "queued"
	case TaskStateRunning:
		return "running"
	case TaskStateDelaying:
		return "delaying"
	}
	return "unknown"
}

// PendingTask is a snapshot of the task that has been submitted to the queue,
// but either its work item has not returned yet or its throttle delay has not elapsed yet.
type PendingTask struct {
	SequenceID uint64
	Interval   time.Duration
	// Explicit is true if the interval was passed on submission, and false if it was inherited from the queue.
	Explicit bool
	State    TaskState
}

type task struct {
	seq         uint64
	interval    time.Duration
	explicit    bool
	work        func()
	submittedAt time.Time

	state      TaskState
	workDone   bool
	delayDone  bool
	delayStart time.Time
	timer      dispatch.Timer
	timerGen   uint64
	err        error
	done       chan struct{}
}

// throttleState is guarded by Queue.mu.
type throttleState struct {
	defaultInterval time.Duration
	mutability      Mutability
	monitor         Monitor

	pending    []*task // in submission order
	waiting    []*task // not dispatched yet
	gateHolder *task
	lastSeq    uint64
}

func (s *throttleState) affects(t *task) bool {
	switch s.mutability {
	case MutabilityAll:
		return true
	case MutabilityDefaultOnly:
		return !t.explicit
	case MutabilityNone:
		return false
	}
	return false
}

func (s *throttleState) remove(t *task) {
	for i, pt := range s.pending {
		if pt == t {
			copy(s.pending[i:], s.pending[i+1:])
			s.pending[len(s.pending)-1] = nil
			s.pending = s.pending[:len(s.pending)-1]
			return
		}
	}
}

func (q *Queue) enqueueLocked(interval time.Duration, explicit bool, work func()) *task {
	q.state.lastSeq++
	t := &task{
		seq:         q.state.lastSeq,
		interval:    interval,
		explicit:    explicit,
		work:        work,
		submittedAt: q.clock.Now(),
		done:        make(chan struct{}),
	}
	q.state.pending = append(q.state.pending, t)
	q.state.waiting = append(q.state.waiting, t)
	q.metrics.IncSubmittedTasks(explicit)
	q.metrics.SetPendingTasks(len(q.state.pending))
	q.pumpLocked()
	return t
}

// pumpLocked dispatches waiting tasks while the gate is open.
func (q *Queue) pumpLocked() {
	for q.state.gateHolder == nil && len(q.state.waiting) > 0 {
		t := q.state.waiting[0]
		q.state.waiting[0] = nil
		q.state.waiting = q.state.waiting[1:]
		q.dispatchLocked(t)
	}
}

func (q *Queue) dispatchLocked(t *task) {
	now := q.clock.Now()
	q.state.gateHolder = t
	t.state = TaskStateRunning
	q.metrics.ObserveWaitDuration(now.Sub(t.submittedAt))
	q.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("dispatching task", log.Uint64("seq", t.seq), log.Duration("interval", t.interval),
			log.Bool("explicit", t.explicit))
	})

	q.exec.Submit(t.work, func(err error) {
		q.onWorkDone(t, err)
	})

	switch q.state.monitor {
	case MonitorConcurrent:
		t.delayStart = now
		q.scheduleDelayLocked(t)
	case MonitorSerial:
		// The delay starts when the work item returns.
	}
}

func (q *Queue) onWorkDone(t *task, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	t.workDone = true
	if err != nil {
		t.err = err
		q.metrics.IncPanickedTasks()
		q.logger.Warn("task finished with error, throttling continues", log.Uint64("seq", t.seq), log.Error(err))
	}

	switch q.state.monitor {
	case MonitorSerial:
		t.state = TaskStateDelaying
		t.delayStart = q.clock.Now()
		q.scheduleDelayLocked(t)
	case MonitorConcurrent:
		if t.delayDone {
			q.finishLocked(t)
		} else {
			t.state = TaskStateDelaying
		}
	}
	q.pumpLocked()
}

// scheduleDelayLocked (re)starts the delay timer of the task, so it fires at t.delayStart + t.interval.
func (q *Queue) scheduleDelayLocked(t *task) {
	remaining := t.interval - q.clock.Now().Sub(t.delayStart)
	if remaining <= 0 {
		q.releaseLocked(t)
		return
	}
	t.timerGen++
	gen := t.timerGen
	t.timer = dispatch.After(q.clock, remaining, q.control, func() {
		q.onDelayElapsed(t, gen)
	})
}

func (q *Queue) onDelayElapsed(t *task, gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t.delayDone || t.timerGen != gen {
		return // Stale timer, the delay has been rescheduled.
	}
	q.releaseLocked(t)
	q.pumpLocked()
}

// releaseLocked opens the gate held by the task.
func (q *Queue) releaseLocked(t *task) {
	t.delayDone = true
	t.timer = nil
	if q.state.gateHolder == t {
		q.state.gateHolder = nil
	}
	if t.workDone {
		q.finishLocked(t)
	}
}

func (q *Queue) finishLocked(t *task) {
	q.state.remove(t)
	q.metrics.SetPendingTasks(len(q.state.pending))
	q.logger.AtLevel(log.LevelDebug, func(logFunc log.LogFunc) {
		logFunc("task released", log.Uint64("seq", t.seq), log.Int("pending", len(q.state.pending)))
	})
	close(t.done)
}

// rewriteIntervalsLocked applies the new default interval to the pending tasks affected by the mutability.
func (q *Queue) rewriteIntervalsLocked(interval time.Duration) (affected int) {
	// Rescheduling may release tasks and remove them from the pending list.
	pending := append([]*task(nil), q.state.pending...)
	for _, t := range pending {
		if t.delayDone || !q.state.affects(t) {
			continue
		}
		t.interval = interval
		affected++
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
			q.scheduleDelayLocked(t)
		}
	}
	return affected
}
