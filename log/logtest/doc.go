/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides implementations of log.FieldLogger for tests:
// Recorder keeps logged entries for later inspection, NewLogger writes JSON to stderr.
package logtest
