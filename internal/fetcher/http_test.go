package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(retries int) *Client {
	return New(Options{
		MaxRetries:     retries,
		RequestsPerSec: 1000,
		BackoffBase:    time.Millisecond,
		Timeout:        2 * time.Second,
	})
}

func TestClient_Get_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "necta-cli/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>hello</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	body, err := newTestClient(3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>hello</html>", string(body))
}

func TestClient_Get_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	body, err := newTestClient(3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_Get_RetriesExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(3).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_Get_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(3).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.EqualValues(t, 1, calls.Load(), "404 must not be retried")
}

func TestClient_Get_InsecureSkipVerify(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure")) //nolint:errcheck
	}))
	defer srv.Close()

	// Self-signed cert fails verification without the bypass.
	strict := newTestClient(1)
	_, err := strict.Get(context.Background(), srv.URL)
	require.Error(t, err)

	lax := New(Options{
		MaxRetries:         1,
		RequestsPerSec:     1000,
		BackoffBase:        time.Millisecond,
		InsecureSkipVerify: true,
	})
	body, err := lax.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(body))
}

func TestClient_Get_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(3).Get(ctx, srv.URL)
	require.Error(t, err)
}
