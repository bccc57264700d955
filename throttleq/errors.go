/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttleq

import "errors"

// ErrInvalidConfiguration is returned when a queue is created or reconfigured with invalid parameters
// (e.g., negative interval or unknown mutability). The previous configuration is left unchanged.
var ErrInvalidConfiguration = errors.New("invalid throttle queue configuration")

// ErrInvalidArgument is returned when a task is submitted to a nil queue, or the work item is nil,
// or the explicit interval is negative. No task is created in this case.
var ErrInvalidArgument = errors.New("invalid throttle queue argument")
