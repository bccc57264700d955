/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertion helpers for Prometheus metrics used in tests of throttle queues.
package testutil

type tHelper interface {
	Helper()
}
