/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-throttleq/throttleq"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// Delegate is the next RoundTripper in the chain.
	// A clone of http.DefaultTransport is used if it's nil.
	Delegate http.RoundTripper

	// Timeout is a time limit for requests made by the client (see http.Client.Timeout).
	// The time spent in the throttle queue is counted too.
	Timeout time.Duration

	// QueueOpts is passed to throttleq.NewFromConfig.
	QueueOpts throttleq.Opts

	// ThrottlingOpts is passed to NewThrottlingRoundTripperWithOpts.
	ThrottlingOpts ThrottlingRoundTripperOpts
}

// New creates a new HTTP client which paces outgoing requests through a throttle queue
// created from the passed configuration.
func New(cfg *throttleq.Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must creates a new HTTP client with throttling and panics if any error occurs.
func Must(cfg *throttleq.Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts creates a new HTTP client which paces outgoing requests through a throttle queue
// created from the passed configuration and options.
func NewWithOpts(cfg *throttleq.Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	queue, err := throttleq.NewFromConfig(cfg, opts.QueueOpts)
	if err != nil {
		return nil, fmt.Errorf("create throttle queue: %w", err)
	}

	tr, err := NewThrottlingRoundTripperWithOpts(delegate, queue, opts.ThrottlingOpts)
	if err != nil {
		return nil, fmt.Errorf("create throttling round tripper: %w", err)
	}

	return &http.Client{Transport: tr, Timeout: opts.Timeout}, nil
}

// MustWithOpts creates a new HTTP client with throttling and panics if any error occurs.
func MustWithOpts(cfg *throttleq.Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
