/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-throttleq/dispatch"
	"github.com/acronis/go-throttleq/throttleq"
)

type hitsRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (hr *hitsRecorder) record() {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.times = append(hr.times, time.Now())
}

func (hr *hitsRecorder) get() []time.Time {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	return append([]time.Time(nil), hr.times...)
}

func makeTestServerForThrottlingRoundTripper(hits *hitsRecorder, intervalHeader string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits.record()
		if intervalHeader != "" {
			if interval := r.URL.Query().Get("interval"); interval != "" {
				rw.Header().Set(intervalHeader, interval)
			}
		}
		_, _ = rw.Write([]byte("ok"))
	}))
}

func newTestThrottleQueue(t *testing.T, interval time.Duration, monitor throttleq.Monitor) *throttleq.Queue {
	t.Helper()
	q, err := throttleq.NewWithOpts("http-test", interval, throttleq.Opts{Monitor: monitor})
	require.NoError(t, err)
	return q
}

func TestNewThrottlingRoundTripper(t *testing.T) {
	q := newTestThrottleQueue(t, time.Millisecond, throttleq.MonitorSerial)

	tests := []struct {
		Name       string
		Queue      *throttleq.Queue
		Opts       ThrottlingRoundTripperOpts
		WantErrMsg string
	}{
		{
			Name:       "queue is nil",
			WantErrMsg: "throttle queue must be specified",
		},
		{
			Name:       "interval is negative",
			Queue:      q,
			Opts:       ThrottlingRoundTripperOpts{Interval: -time.Second},
			WantErrMsg: "interval must be non-negative",
		},
		{
			Name:       "max interval is negative",
			Queue:      q,
			Opts:       ThrottlingRoundTripperOpts{Adaptation: ThrottlingRoundTripperAdaptation{MaxInterval: -1}},
			WantErrMsg: "max interval must be non-negative",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.Name, func(t *testing.T) {
			_, err := NewThrottlingRoundTripperWithOpts(http.DefaultTransport, tt.Queue, tt.Opts)
			require.EqualError(t, err, tt.WantErrMsg)
		})
	}

	rt, err := NewThrottlingRoundTripper(http.DefaultTransport, q)
	require.NoError(t, err)
	require.Equal(t, q, rt.Queue)
	require.Zero(t, rt.Interval)
}

func TestThrottlingRoundTripper_RoundTrip(t *testing.T) {
	const interval = 100 * time.Millisecond

	for _, monitor := range []throttleq.Monitor{throttleq.MonitorSerial, throttleq.MonitorConcurrent} {
		monitor := monitor
		t.Run(monitor.String(), func(t *testing.T) {
			hits := &hitsRecorder{}
			server := makeTestServerForThrottlingRoundTripper(hits, "")
			defer server.Close()

			tr, err := NewThrottlingRoundTripper(http.DefaultTransport, newTestThrottleQueue(t, interval, monitor))
			require.NoError(t, err)
			client := &http.Client{Transport: tr}

			const reqsNum = 4
			for i := 0; i < reqsNum; i++ {
				startedAt := time.Now()
				resp, err := client.Get(server.URL)
				require.NoError(t, err)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.NoError(t, resp.Body.Close())
				if i == 0 {
					// The caller doesn't wait for the throttling delay of its own request.
					require.Less(t, time.Since(startedAt), interval)
				}
			}

			gotHits := hits.get()
			require.Len(t, gotHits, reqsNum)
			for i := 1; i < reqsNum; i++ {
				require.GreaterOrEqual(t, gotHits[i].Sub(gotHits[i-1]), interval-5*time.Millisecond)
			}
		})
	}
}

func TestThrottlingRoundTripper_ExplicitInterval(t *testing.T) {
	hits := &hitsRecorder{}
	server := makeTestServerForThrottlingRoundTripper(hits, "")
	defer server.Close()

	q := newTestThrottleQueue(t, time.Hour, throttleq.MonitorSerial)
	tr, err := NewThrottlingRoundTripperWithOpts(http.DefaultTransport, q, ThrottlingRoundTripperOpts{Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	for i := 0; i < 3; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}
	gotHits := hits.get()
	require.Len(t, gotHits, 3)
	require.Less(t, gotHits[2].Sub(gotHits[0]), time.Second)
}

func TestThrottlingRoundTripper_ContextCanceledWhileQueued(t *testing.T) {
	const interval = 300 * time.Millisecond

	hits := &hitsRecorder{}
	server := makeTestServerForThrottlingRoundTripper(hits, "")
	defer server.Close()

	q := newTestThrottleQueue(t, interval, throttleq.MonitorSerial)
	tr, err := NewThrottlingRoundTripper(http.DefaultTransport, q)
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req) // nolint:bodyclose // Response is nil on error.
	require.Error(t, err)
	var waitErr *ThrottlingWaitError
	require.True(t, errors.As(err, &waitErr))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The abandoned request is never sent, even after its turn comes.
	require.Eventually(t, func() bool { return q.PendingCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	require.Len(t, hits.get(), 1)
}

func TestThrottlingRoundTripper_ContextCanceledWhileSent(t *testing.T) {
	handlerStarted := make(chan struct{})
	handlerCalls := atomic.NewInt32(0)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handlerCalls.Inc()
		close(handlerStarted)
		<-r.Context().Done()
	}))
	defer server.Close()

	tr, err := NewThrottlingRoundTripper(http.DefaultTransport, newTestThrottleQueue(t, time.Millisecond, throttleq.MonitorSerial))
	require.NoError(t, err)
	client := &http.Client{Transport: tr}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-handlerStarted
		cancel()
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = client.Do(req) // nolint:bodyclose // Response is nil on error.
	require.ErrorIs(t, err, context.Canceled)
	var waitErr *ThrottlingWaitError
	require.False(t, errors.As(err, &waitErr))
	require.Equal(t, int32(1), handlerCalls.Load())
}

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestThrottlingRoundTripper_DelegatePanic(t *testing.T) {
	calls := atomic.NewInt32(0)
	delegate := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if calls.Inc() == 1 {
			panic("boom")
		}
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	queue := newTestThrottleQueue(t, 10*time.Millisecond, throttleq.MonitorSerial)
	tr, err := NewThrottlingRoundTripper(delegate, queue)
	require.NoError(t, err)

	doRequest := func() (*http.Response, error) {
		req, reqErr := http.NewRequest(http.MethodGet, "http://example.com", nil)
		require.NoError(t, reqErr)
		type result struct {
			resp *http.Response
			err  error
		}
		resultCh := make(chan result, 1)
		go func() {
			resp, rtErr := tr.RoundTrip(req)
			resultCh <- result{resp, rtErr}
		}()
		select {
		case res := <-resultCh:
			return res.resp, res.err
		case <-time.After(5 * time.Second):
			require.FailNow(t, "RoundTrip is still blocked after the delegate panicked")
			return nil, nil
		}
	}

	resp, err := doRequest() // nolint:bodyclose // Response is nil on error.
	require.Nil(t, resp)
	var panicErr *dispatch.PanicError
	require.True(t, errors.As(err, &panicErr))
	require.Equal(t, "boom", panicErr.Value)
	require.NotEmpty(t, panicErr.Stack)

	// The queue keeps serving requests after the panic.
	resp, err = doRequest()
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return queue.PendingCount() == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestThrottlingRoundTripper_Adaptation(t *testing.T) {
	const intervalHeader = "X-Throttle-Interval"

	tests := []struct {
		Name         string
		HeaderValue  string
		MaxInterval  time.Duration
		WantInterval time.Duration
	}{
		{
			Name:         "interval from response",
			HeaderValue:  "0.2",
			WantInterval: 200 * time.Millisecond,
		},
		{
			Name:         "interval is limited",
			HeaderValue:  "10",
			MaxInterval:  time.Second,
			WantInterval: time.Second,
		},
		{
			Name:         "invalid value is ignored",
			HeaderValue:  "fast",
			WantInterval: 10 * time.Millisecond,
		},
		{
			Name:         "negative value is ignored",
			HeaderValue:  "-1",
			WantInterval: 10 * time.Millisecond,
		},
		{
			Name:         "no header",
			WantInterval: 10 * time.Millisecond,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.Name, func(t *testing.T) {
			server := makeTestServerForThrottlingRoundTripper(&hitsRecorder{}, intervalHeader)
			defer server.Close()

			q := newTestThrottleQueue(t, 10*time.Millisecond, throttleq.MonitorSerial)
			tr, err := NewThrottlingRoundTripperWithOpts(http.DefaultTransport, q, ThrottlingRoundTripperOpts{
				Adaptation: ThrottlingRoundTripperAdaptation{ResponseHeaderName: intervalHeader, MaxInterval: tt.MaxInterval},
			})
			require.NoError(t, err)
			client := &http.Client{Transport: tr}

			url := server.URL
			if tt.HeaderValue != "" {
				url += "?interval=" + tt.HeaderValue
			}
			resp, err := client.Get(url)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			require.Equal(t, tt.WantInterval, q.DefaultInterval())
		})
	}
}
