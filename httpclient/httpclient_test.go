/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttleq/config"
	"github.com/acronis/go-throttleq/throttleq"
)

func TestNewHTTPClient(t *testing.T) {
	hits := &hitsRecorder{}
	server := makeTestServerForThrottlingRoundTripper(hits, "")
	defer server.Close()

	cfgData := `
throttleQueue:
  label: api
  interval: 100ms
  monitor: serial
`
	cfg := throttleq.NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)

	client, err := NewWithOpts(cfg, Opts{Timeout: 5 * time.Second})
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, client.Timeout)

	tr, ok := client.Transport.(*ThrottlingRoundTripper)
	require.True(t, ok)
	require.Equal(t, "api", tr.Queue.Label())
	require.Equal(t, throttleq.MonitorSerial, tr.Queue.Monitor())

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}
	gotHits := hits.get()
	require.Len(t, gotHits, 2)
	require.GreaterOrEqual(t, gotHits[1].Sub(gotHits[0]), 95*time.Millisecond)
}

func TestMustHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	client := Must(throttleq.NewDefaultConfig())
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusTeapot, resp.StatusCode)

	invalidCfg := throttleq.NewDefaultConfig()
	invalidCfg.Interval = config.TimeDuration(-time.Second)
	_, err = New(invalidCfg)
	require.ErrorIs(t, err, throttleq.ErrInvalidConfiguration)
	require.Panics(t, func() { MustWithOpts(invalidCfg, Opts{}) })
}
