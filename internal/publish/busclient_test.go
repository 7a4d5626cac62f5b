package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPBusClient_sendsNDJSONBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewHTTPBusClient(srv.URL, time.Second)
	err := client.Send(context.Background(), [][]byte{[]byte(`{"a":1}`), []byte(`{"b":2}`)})
	require.NoError(t, err)
	require.Equal(t, "{\"a\":1}\n{\"b\":2}\n", gotBody)
	require.Equal(t, "application/x-ndjson", gotContentType)
}

func TestHTTPBusClient_serverErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPBusClient(srv.URL, time.Second).Send(context.Background(), [][]byte{[]byte("{}")})
	require.Error(t, err)
	require.True(t, IsTransient(err))
}

func TestHTTPBusClient_clientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewHTTPBusClient(srv.URL, time.Second).Send(context.Background(), [][]byte{[]byte("{}")})
	require.Error(t, err)
	require.False(t, IsTransient(err))
}

func TestHTTPBusClient_connectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := NewHTTPBusClient(srv.URL, time.Second).Send(context.Background(), [][]byte{[]byte("{}")})
	require.Error(t, err)
	require.True(t, IsTransient(err))
}
