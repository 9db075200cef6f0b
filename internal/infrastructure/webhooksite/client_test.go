package webhooksite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inbox struct {
	mu      sync.Mutex
	pages   [][]message // served in order; the last one repeats
	gets    int
	deletes []string
	queries []string
}

func (in *inbox) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in.mu.Lock()
		defer in.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/token/tok/requests", r.URL.Path)
			in.queries = append(in.queries, r.URL.RawQuery)
			page := in.pages[min(in.gets, len(in.pages)-1)]
			in.gets++
			_ = json.NewEncoder(w).Encode(map[string]any{"data": page})
		case http.MethodDelete:
			in.deletes = append(in.deletes, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func client(srv *httptest.Server) *Client {
	c := New(srv.URL)
	c.Interval = 0
	return c
}

func TestRetrieve_ExtractsCodeAndDeletesOnce(t *testing.T) {
	in := &inbox{pages: [][]message{{
		{UUID: "m-1", TextContent: "SU CODIGO 4821, DE VERIFICACION CITA PREVIA"},
		{UUID: "m-0", TextContent: "older"},
	}}}
	c := client(in.server(t))

	code, ok, err := c.Retrieve(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4821", code)
	assert.Equal(t, []string{"/token/tok/request/m-1"}, in.deletes)
	assert.Equal(t, []string{"page=1&sorting=newest"}, in.queries)
}

func TestRetrieve_WaitsForMessage(t *testing.T) {
	in := &inbox{pages: [][]message{
		{},
		{{UUID: "x", TextContent: "hola"}},
		{{UUID: "m-2", TextContent: "CODIGO 0042, DE"}},
	}}
	c := client(in.server(t))

	code, ok, err := c.Retrieve(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0042", code)
	assert.Equal(t, 3, in.gets)
	assert.Len(t, in.deletes, 1)
}

func TestRetrieve_GivesUp(t *testing.T) {
	in := &inbox{pages: [][]message{{}}}
	c := client(in.server(t))

	code, ok, err := c.Retrieve(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, code)
	assert.Equal(t, DefaultPolls, in.gets)
	assert.Empty(t, in.deletes)
}

func TestRetrieve_Cancelled(t *testing.T) {
	in := &inbox{pages: [][]message{{}}}
	c := client(in.server(t))
	c.Interval = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, ok, err := c.Retrieve(ctx, "tok")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
	assert.Equal(t, 1, in.gets)
}

func TestRetrieve_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not found</html>"))
	}))
	defer srv.Close()

	_, ok, err := New(srv.URL).Retrieve(context.Background(), "tok")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "token is incorrect")
}

func TestPurge(t *testing.T) {
	in := &inbox{pages: [][]message{{}}}
	c := client(in.server(t))

	require.NoError(t, c.Purge(context.Background(), "tok"))
	assert.Equal(t, []string{"/token/tok/request/"}, in.deletes)
}
