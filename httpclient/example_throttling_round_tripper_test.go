/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/acronis/go-throttleq/throttleq"
)

/*
ExampleNewThrottlingRoundTripper demonstrates the use of ThrottlingRoundTripper with the serial throttle queue.

Output to stderr will be like:

	[Req#1] 204 (0ms)
	[Req#2] 204 (201ms)
	[Req#3] 204 (199ms)
	[Req#4] 204 (200ms)
*/
func ExampleNewThrottlingRoundTripper() {
	// Note: error handling is intentionally omitted so as not to overcomplicate the example.
	// It is strictly necessary to handle all errors in real code.

	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	// Let's make transport that sends the next request not earlier than 200ms after the previous one has finished.
	queue, _ := throttleq.NewWithOpts("api", 200*time.Millisecond, throttleq.Opts{Monitor: throttleq.MonitorSerial})
	tr, _ := NewThrottlingRoundTripper(http.DefaultTransport, queue)
	httpClient := &http.Client{Transport: tr}

	start := time.Now()
	prev := time.Now()
	for i := 0; i < 4; i++ {
		resp, _ := httpClient.Get(server.URL)
		_ = resp.Body.Close()
		now := time.Now()
		_, _ = fmt.Fprintf(os.Stderr, "[Req#%d] %d (%dms)\n", i+1, resp.StatusCode, now.Sub(prev).Milliseconds())
		prev = now
	}
	if time.Since(start) >= 600*time.Millisecond {
		fmt.Println("Total time is at least 600ms")
	}

	// Output:
	// Total time is at least 600ms
}
