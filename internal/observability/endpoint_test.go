package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()

	const numGoroutines = 20
	errs := make(chan error, numGoroutines)
	for range numGoroutines {
		go func() {
			m, err := NewMetrics()
			if err == nil && (m.Meter == nil || m.Registry() == nil) {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for range numGoroutines {
		require.NoError(t, <-errs)
	}
}

func TestEndpointServesMetricsAndShutsDown(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Meter.RecordBlock(42, 0)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- NewEndpoint(ln.Addr().String(), m).Serve(ctx, ln)
	}()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+ln.Addr().String()+"/metrics", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rmsmeter_loudness 42")
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint did not shut down")
	}
}

func TestEndpointRunFailsOnBadAddress(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	err = NewEndpoint("256.0.0.1:bad", m).Run(t.Context())
	assert.Error(t, err)
}
