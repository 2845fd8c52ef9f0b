package ontap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedServer struct {
	mu    sync.Mutex
	pages map[string]string
	fails map[string]int
	order []string
	srv   *httptest.Server
}

func newPagedServer(t *testing.T) *pagedServer {
	t.Helper()
	ps := &pagedServer{pages: map[string]string{}, fails: map[string]int{}}
	ps.srv = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		uri := r.URL.RequestURI()
		ps.order = append(ps.order, uri)
		if status, ok := ps.fails[uri]; ok {
			w.WriteHeader(status)
			return
		}
		body, ok := ps.pages[uri]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pagedServer) client() *Client {
	return NewClient(strings.TrimPrefix(ps.srv.URL, "https://"), "admin", "secret")
}

type namedRecord struct {
	Name string `json:"name"`
}

func TestCollectFollowsNextLinks(t *testing.T) {
	ps := newPagedServer(t)
	ps.pages["/api/svm/svms?fields=state"] = `{
		"records": [{"name": "svm1"}, {"name": "svm2"}],
		"num_records": 2,
		"_links": {"next": {"href": "/api/svm/svms?fields=state&offset=2"}}
	}`
	ps.pages["/api/svm/svms?fields=state&offset=2"] = `{
		"records": [{"name": "svm3"}],
		"num_records": 1
	}`

	records, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms?fields=state")
	require.NoError(t, err)

	assert.Equal(t, []namedRecord{{Name: "svm1"}, {Name: "svm2"}, {Name: "svm3"}}, records)
	assert.Equal(t, []string{"/api/svm/svms?fields=state", "/api/svm/svms?fields=state&offset=2"}, ps.order)
}

func TestCollectEmptyCollection(t *testing.T) {
	ps := newPagedServer(t)
	ps.pages["/api/svm/svms"] = `{"records":[],"num_records":0}`

	records, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollectStatusErrorCarriesPathAndStatus(t *testing.T) {
	ps := newPagedServer(t)
	ps.fails["/api/svm/svms"] = http.StatusServiceUnavailable

	_, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "/api/svm/svms", statusErr.Path)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
}

func TestCollectFailedLaterPageFailsCollection(t *testing.T) {
	ps := newPagedServer(t)
	ps.pages["/api/svm/svms"] = `{
		"records": [{"name": "svm1"}],
		"num_records": 1,
		"_links": {"next": {"href": "/api/svm/svms?offset=1"}}
	}`
	ps.fails["/api/svm/svms?offset=1"] = http.StatusInternalServerError

	records, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms")
	require.Error(t, err)
	assert.Nil(t, records, "a partial collection is unusable")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "/api/svm/svms?offset=1", statusErr.Path)
}

func TestCollectMalformedPage(t *testing.T) {
	ps := newPagedServer(t)
	ps.pages["/api/svm/svms"] = "not json"

	_, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode page")
}

func TestCollectMalformedRecord(t *testing.T) {
	ps := newPagedServer(t)
	ps.pages["/api/svm/svms"] = `{"records":[42],"num_records":1}`

	_, err := Collect[namedRecord](context.Background(), ps.client(), "/api/svm/svms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode record")
}
