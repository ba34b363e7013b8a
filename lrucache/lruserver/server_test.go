package lruserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/slon/memcached/lrucache/lrusync"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type env struct {
	client *resty.Client
	logs   *observer.ObservedLogs
}

func newEnv(t *testing.T, capacity int) *env {
	t.Helper()

	cache, err := lrusync.New[string, []byte](capacity)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	srv := httptest.NewServer(New(cache, zap.New(core)).Handler())

	client := resty.New().SetHostURL(srv.URL)
	t.Cleanup(func() {
		client.GetClient().CloseIdleConnections()
		srv.Close()
	})

	return &env{client: client, logs: logs}
}

func (e *env) put(t *testing.T, key, value string) *resty.Response {
	t.Helper()

	resp, err := e.client.R().SetBody([]byte(value)).Put("/cache/" + key)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode())
	return resp
}

func (e *env) get(t *testing.T, key string) (string, bool) {
	t.Helper()

	resp, err := e.client.R().Get("/cache/" + key)
	require.NoError(t, err)
	if resp.StatusCode() == http.StatusNotFound {
		return "", false
	}
	require.Equal(t, http.StatusOK, resp.StatusCode())
	return string(resp.Body()), true
}

func (e *env) list(t *testing.T) Listing {
	t.Helper()

	var listing Listing
	resp, err := e.client.R().SetResult(&listing).Get("/cache")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	return listing
}

func TestServer_PutGetEvict(t *testing.T) {
	e := newEnv(t, 2)

	e.put(t, "a", "A")
	e.put(t, "b", "B")

	v, ok := e.get(t, "a")
	require.True(t, ok)
	require.Equal(t, "A", v)

	resp := e.put(t, "c", "C")
	require.Equal(t, "b", resp.Header().Get(EvictedKeyHeader))

	_, ok = e.get(t, "b")
	require.False(t, ok)

	require.Equal(t, Listing{Capacity: 2, Keys: []string{"c", "a"}}, e.list(t))
}

func TestServer_OverwriteDoesNotEvict(t *testing.T) {
	e := newEnv(t, 1)

	e.put(t, "a", "1")
	resp := e.put(t, "a", "2")
	require.Empty(t, resp.Header().Get(EvictedKeyHeader))

	v, ok := e.get(t, "a")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestServer_EscapedKeys(t *testing.T) {
	e := newEnv(t, 4)

	e.put(t, "a%2Fb", "slash")
	e.put(t, "a%20b", "space")
	e.put(t, "a%2525", "percent")

	v, ok := e.get(t, "a%2fb")
	require.True(t, ok)
	require.Equal(t, "slash", v)

	v, ok = e.get(t, "a%20b")
	require.True(t, ok)
	require.Equal(t, "space", v)

	require.Equal(t, []string{"a b", "a/b", "a%25"}, e.list(t).Keys)
}

func TestServer_ValueTooLarge(t *testing.T) {
	e := newEnv(t, 1)

	resp, err := e.client.R().SetBody([]byte(strings.Repeat("x", maxValueSize+1))).Put("/cache/big")
	require.NoError(t, err)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode())

	_, ok := e.get(t, "big")
	require.False(t, ok)
}

func TestServer_Metrics(t *testing.T) {
	e := newEnv(t, 1)

	e.put(t, "a", "1")
	e.get(t, "a")
	e.get(t, "b")

	resp, err := e.client.R().Get("/metrics")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	body := resp.String()
	require.Contains(t, body, "lrucache_hits_total 1")
	require.Contains(t, body, "lrucache_misses_total 1")
	require.Contains(t, body, "lrucache_capacity 1")
}

func TestServer_RequestID(t *testing.T) {
	e := newEnv(t, 1)

	resp, err := e.client.R().SetHeader(RequestIDHeader, "fixed-id").Get("/cache/a")
	require.NoError(t, err)
	require.Equal(t, "fixed-id", resp.Header().Get(RequestIDHeader))

	resp, err = e.client.R().Get("/cache/a")
	require.NoError(t, err)
	require.Len(t, resp.Header().Get(RequestIDHeader), 36)

	entries := e.logs.FilterMessage("request").FilterField(zap.String("request_id", "fixed-id")).All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(http.StatusNotFound), entries[0].ContextMap()["status"])
}

func TestServer_Serve(t *testing.T) {
	cache, err := lrusync.New[string, []byte](1)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(cache, zap.NewNop()).Serve(ctx, ln)
	}()

	client := resty.New().SetHostURL("http://" + ln.Addr().String())
	resp, err := client.R().SetBody([]byte("v")).Put("/cache/k")
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode())
	client.GetClient().CloseIdleConnections()

	cancel()
	require.NoError(t, <-done)

	v, ok := cache.Peek("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)
}
