/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-throttleq/dispatch"
	"github.com/acronis/go-throttleq/throttleq"
)

// ThrottlingRoundTripperAdaptation represents params to adapt the default interval of the throttle queue
// in accordance with value in response.
type ThrottlingRoundTripperAdaptation struct {
	// ResponseHeaderName is a name of the response header which contains the minimal interval
	// (in seconds, may be fractional) the server expects between requests.
	ResponseHeaderName string

	// MaxInterval limits the interval taken from the response. 0 means no limit.
	MaxInterval time.Duration
}

// ThrottlingRoundTripperOpts represents an options for ThrottlingRoundTripper.
type ThrottlingRoundTripperOpts struct {
	// Interval is an explicit interval used for all requests instead of the default one of the queue.
	// 0 means that requests inherit the default interval.
	Interval time.Duration

	Adaptation ThrottlingRoundTripperAdaptation
}

// ThrottlingRoundTripper wraps implementing http.RoundTripper interface object
// and paces outgoing requests through the throttle queue.
// The next request is sent not earlier than the interval after the previous one (see throttleq.Monitor),
// but RoundTrip returns as soon as the response is received.
type ThrottlingRoundTripper struct {
	Delegate   http.RoundTripper
	Queue      *throttleq.Queue
	Interval   time.Duration
	Adaptation ThrottlingRoundTripperAdaptation
}

// NewThrottlingRoundTripper creates a new ThrottlingRoundTripper.
func NewThrottlingRoundTripper(delegate http.RoundTripper, queue *throttleq.Queue) (*ThrottlingRoundTripper, error) {
	return NewThrottlingRoundTripperWithOpts(delegate, queue, ThrottlingRoundTripperOpts{})
}

// NewThrottlingRoundTripperWithOpts creates a new ThrottlingRoundTripper with the specified options.
func NewThrottlingRoundTripperWithOpts(
	delegate http.RoundTripper, queue *throttleq.Queue, opts ThrottlingRoundTripperOpts,
) (*ThrottlingRoundTripper, error) {
	if queue == nil {
		return nil, fmt.Errorf("throttle queue must be specified")
	}
	if opts.Interval < 0 {
		return nil, fmt.Errorf("interval must be non-negative")
	}
	if opts.Adaptation.MaxInterval < 0 {
		return nil, fmt.Errorf("max interval must be non-negative")
	}
	return &ThrottlingRoundTripper{
		Delegate:   delegate,
		Queue:      queue,
		Interval:   opts.Interval,
		Adaptation: opts.Adaptation,
	}, nil
}

const panicStackSize = 8192

// Request states.
const (
	requestQueued int32 = iota
	requestSent
	requestAbandoned
)

type roundTripResult struct {
	resp *http.Response
	err  error
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
// A panic in the delegate is returned as *dispatch.PanicError.
func (rt *ThrottlingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	state := atomic.NewInt32(requestQueued)
	resultCh := make(chan roundTripResult, 1)

	work := func() {
		if !state.CAS(requestQueued, requestSent) {
			return
		}
		var res roundTripResult
		defer func() {
			if p := recover(); p != nil {
				stack := make([]byte, panicStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				res = roundTripResult{err: &dispatch.PanicError{Value: p, Stack: stack}}
			}
			resultCh <- res
		}()
		res.resp, res.err = rt.Delegate.RoundTrip(r)
	}

	var err error
	if rt.Interval > 0 {
		err = rt.Queue.SubmitAsyncAfter(rt.Interval, work)
	} else {
		err = rt.Queue.SubmitAsync(work)
	}
	if err != nil {
		closeRequestBody(r)
		return nil, err
	}

	var res roundTripResult
	select {
	case res = <-resultCh:
	case <-r.Context().Done():
		if state.CAS(requestQueued, requestAbandoned) {
			closeRequestBody(r)
			return nil, &ThrottlingWaitError{Inner: r.Context().Err()}
		}
		// The request is already sent, the delegate is responsible for the context handling.
		res = <-resultCh
	}

	if res.err == nil && rt.Adaptation.ResponseHeaderName != "" {
		rt.adaptIntervalIfNeeded(res.resp)
	}
	return res.resp, res.err
}

func (rt *ThrottlingRoundTripper) adaptIntervalIfNeeded(resp *http.Response) {
	interval, ok := rt.getIntervalFromResponse(resp)
	if !ok || interval == rt.Queue.DefaultInterval() {
		return
	}
	_ = rt.Queue.SetDefaultInterval(interval) // Interval is always valid here.
}

func (rt *ThrottlingRoundTripper) getIntervalFromResponse(resp *http.Response) (time.Duration, bool) {
	valStr := resp.Header.Get(rt.Adaptation.ResponseHeaderName)
	if valStr == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(valStr, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	interval := time.Duration(seconds * float64(time.Second))
	if rt.Adaptation.MaxInterval > 0 && interval > rt.Adaptation.MaxInterval {
		interval = rt.Adaptation.MaxInterval
	}
	return interval, true
}

func closeRequestBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close() // Per RoundTripper contract.
	}
}

// ThrottlingWaitError is returned in RoundTrip method of ThrottlingRoundTripper
// when the request context is done while the request is still waiting in the throttle queue.
type ThrottlingWaitError struct {
	Inner error
}

func (e *ThrottlingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side throttling: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *ThrottlingWaitError) Unwrap() error {
	return e.Inner
}
