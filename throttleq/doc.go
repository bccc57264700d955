/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package throttleq provides throttled task queues.
//
// A Queue wraps an executor and enforces a minimum delay (throttle interval) between
// a submitted work item and the next one. It is intended for pacing bursts of work
// against a downstream resource without blocking the submitting goroutine.
//
// Every task is submitted either with the queue's default interval (SubmitAsync, SubmitSync)
// or with an explicit one (SubmitAsyncAfter, SubmitSyncAfter). When the default interval is changed,
// the queue's Mutability decides which of the already pending tasks get the new interval:
//
//   - MutabilityAll: every pending task, including the ones with an explicit interval.
//   - MutabilityDefaultOnly: only the tasks that inherited the default interval.
//   - MutabilityNone: none; the new interval is used only for tasks submitted later.
//
// The queue's Monitor decides what the interval separates:
//
//   - MonitorSerial: tasks run one by one, and the next task starts no earlier than
//     the interval after the previous task has finished.
//   - MonitorConcurrent: tasks are handed to the executor no closer than the interval apart
//     and may run concurrently with each other.
//
// Tasks are always dispatched in submission (FIFO) order.
package throttleq
