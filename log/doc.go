/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides structured logging (on top of github.com/ssgreg/logf) used by throttle queues and executors.
// Loggers are configured with Config, which may be loaded with config.Loader.
package log
