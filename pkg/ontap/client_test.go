package ontap

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsBodyAndStatus(t *testing.T) {
	var gotPath, gotUser, gotPass string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotUser, gotPass, _ = r.BasicAuth()
		w.Write([]byte(`{"name":"fsxcluster"}`))
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "https://"), "admin", "secret")
	res, err := c.Get(context.Background(), "/api/cluster?fields=name", 0)
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, `{"name":"fsxcluster"}`, string(res.Body))
	assert.Equal(t, "/api/cluster?fields=name", gotPath)
	assert.Equal(t, "admin", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestGetNon200IsNotAnError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer srv.Close()

	c := NewClient(strings.TrimPrefix(srv.URL, "https://"), "admin", "secret")
	res, err := c.Get(context.Background(), "/api/cluster", 0)
	require.NoError(t, err)

	assert.False(t, res.OK())
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.Equal(t, "busy", string(res.Body))
}

func TestGetTransportErrorIsAnError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := strings.TrimPrefix(srv.URL, "https://")
	srv.Close()

	c := NewClient(host, "admin", "secret")
	_, err := c.Get(context.Background(), "/api/cluster", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request to "+host+" failed")
}

// scriptedTransport fails with the queued errors in order, then succeeds.
type scriptedTransport struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     make(http.Header),
	}, nil
}

func dialError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
}

func TestRetryTransportRetriesConnectOnce(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialError()}}
	rt := &retryTransport{base: base}
	req := httptest.NewRequest(http.MethodGet, "https://cluster/api/cluster", nil)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 2, base.calls)
}

func TestRetryTransportGivesUpAfterSecondConnectFailure(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialError(), dialError()}}
	rt := &retryTransport{base: base}
	req := httptest.NewRequest(http.MethodGet, "https://cluster/api/cluster", nil)

	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 2, base.calls)
}

func TestRetryTransportRetriesReadOnce(t *testing.T) {
	base := &scriptedTransport{errs: []error{io.ErrUnexpectedEOF}}
	rt := &retryTransport{base: base}
	req := httptest.NewRequest(http.MethodGet, "https://cluster/api/cluster", nil)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 2, base.calls)
}

func TestRetryTransportBudgetsAreIndependent(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialError(), io.ErrUnexpectedEOF}}
	rt := &retryTransport{base: base}
	req := httptest.NewRequest(http.MethodGet, "https://cluster/api/cluster", nil)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 3, base.calls)
}

func TestRetryTransportStopsWhenContextDone(t *testing.T) {
	base := &scriptedTransport{errs: []error{dialError(), dialError()}}
	rt := &retryTransport{base: base}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "https://cluster/api/cluster", nil).WithContext(ctx)

	_, err := rt.RoundTrip(req)
	require.Error(t, err)
	assert.Equal(t, 1, base.calls, "a dead context must not be retried")
}
