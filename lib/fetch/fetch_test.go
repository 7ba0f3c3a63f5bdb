package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1 id="title">Dune</h1></body></html>`))
	}))
	defer server.Close()

	client := NewClient(Options{Backoff: time.Millisecond})
	doc, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "Dune", doc.Find("#title").Text())
}

func TestGetRetriesConnectionFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			// force a transport error on the client side
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`<html><body>ok</body></html>`))
	}))
	defer server.Close()

	client := NewClient(Options{Backoff: time.Millisecond})
	_, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, int64(3), calls.Load())
}

func TestGetExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewClient(Options{Retries: 2, Backoff: time.Millisecond})
	_, err := client.Get(context.Background(), addr)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRetriesExhausted))
}

func TestGetDoesNotRetryBadStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Options{Backoff: time.Millisecond})
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrRetriesExhausted))
	require.Equal(t, int64(1), calls.Load())
}
