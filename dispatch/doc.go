/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package dispatch provides the execution primitives the throttled queues are built on:
// a FIFO worker pool (with a single-worker serial flavor) that reports completion of every
// submitted work item, and a clock abstraction for scheduling callbacks after a delay.
//
// Worker goroutines are started on demand and exit as soon as there is nothing left to run,
// so an idle executor holds no resources and needs no explicit shutdown.
package dispatch
