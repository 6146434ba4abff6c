package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablerest/tablerest/internal/testutil"
)

// fakeExecutor records the statement it receives and returns canned rows.
type fakeExecutor struct {
	sql    string
	args   []any
	rows   []map[string]any
	err    error
	called int
}

func (f *fakeExecutor) Query(_ context.Context, sql string, args ...any) ([]map[string]any, error) {
	f.called++
	f.sql = sql
	f.args = args
	if f.err != nil {
		return nil, f.err
	}
	if f.rows == nil {
		return []map[string]any{}, nil
	}
	return f.rows, nil
}

func newTestServer(exec Executor, opts ...Option) *Server {
	opts = append([]Option{WithExcludedTables("secrets")}, opts...)
	return NewServer(testutil.SampleRegistry(), exec, opts...)
}

func doRequest(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "every response must be a valid envelope")
	return w, env
}

func TestListEndToEnd(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{
		{"id": 1, "title": "intro to go"},
		{"id": 2, "title": "intro to sql"},
	}}
	srv := newTestServer(exec)

	where := url.QueryEscape(`{"title":{"ilike":"%intro%"}}`)
	orderBy := url.QueryEscape(`{"createdAt":"desc"}`)
	w, env := doRequest(t, srv, http.MethodGet,
		"/posts?where="+where+"&orderBy="+orderBy+"&limit=5&page=1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, `SELECT * FROM "posts" WHERE "title" ILIKE $1 ORDER BY "createdAt" DESC LIMIT $2`, exec.sql)
	assert.Equal(t, []any{"%intro%", 5}, exec.args)

	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.Total)
	assert.Equal(t, 5, env.Meta.Limit)
	assert.Zero(t, env.Meta.Offset)

	data, ok := env.Data.([]any)
	require.True(t, ok, "collection data must be an array")
	assert.Len(t, data, 2)
}

func TestListEmptyResultKeepsDataArray(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	w, env := doRequest(t, srv, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	data, ok := env.Data.([]any)
	require.True(t, ok)
	assert.Empty(t, data)
	assert.Zero(t, env.Meta.Total)
}

func TestListOffsetWinsOverPage(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	doRequest(t, srv, http.MethodGet, "/posts?offset=5&page=2&limit=10", "")
	assert.Equal(t, `SELECT * FROM "posts" LIMIT $1 OFFSET $2`, exec.sql)
	assert.Equal(t, []any{10, 5}, exec.args)
}

func TestListPageComputesOffset(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	doRequest(t, srv, http.MethodGet, "/posts?limit=10&page=2", "")
	assert.Equal(t, []any{10, 10}, exec.args)
}

func TestListBogusOrderFieldFailsBeforeExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	orderBy := url.QueryEscape(`{"bogusField":"asc"}`)
	w, env := doRequest(t, srv, http.MethodGet, "/posts?orderBy="+orderBy, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	assert.Zero(t, exec.called)
}

func TestListOrderDirectionIsCaseSensitive(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	orderBy := url.QueryEscape(`{"title":"DESC"}`)
	w, _ := doRequest(t, srv, http.MethodGet, "/posts?orderBy="+orderBy, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, exec.called)
}

func TestListSelectValidation(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	// unknown names are dropped, surviving ones used
	doRequest(t, srv, http.MethodGet, "/posts?select=title,nope", "")
	assert.Equal(t, `SELECT "title" FROM "posts"`, exec.sql)

	// zero usable columns is an error, distinct from no selection
	w, _ := doRequest(t, srv, http.MethodGet, "/posts?select=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// star means all columns
	doRequest(t, srv, http.MethodGet, "/posts?select=*", "")
	assert.Equal(t, `SELECT * FROM "posts"`, exec.sql)
}

func TestExcludedTableIs403OnEveryVerb(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec)

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		w, env := doRequest(t, srv, method, "/secrets", "")
		assert.Equal(t, http.StatusForbidden, w.Code, method)
		assert.False(t, env.Success)
	}
	assert.Zero(t, exec.called)
}

func TestUnknownTableIs404(t *testing.T) {
	srv := newTestServer(&fakeExecutor{})
	w, env := doRequest(t, srv, http.MethodGet, "/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestMissingTableNameIs400(t *testing.T) {
	srv := newTestServer(&fakeExecutor{})
	w, _ := doRequest(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBaseURLPrefixIsStripped(t *testing.T) {
	exec := &fakeExecutor{}
	srv := newTestServer(exec, WithBaseURL("/api/v1"))

	w, _ := doRequest(t, srv, http.MethodGet, "/api/v1/posts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `SELECT * FROM "posts"`, exec.sql)
}

func TestExecutionFailurePassesMessageThrough(t *testing.T) {
	exec := &fakeExecutor{err: errors.New(`relation "posts" does not exist`)}
	srv := newTestServer(exec)

	w, env := doRequest(t, srv, http.MethodGet, "/posts", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, `relation "posts" does not exist`, env.Error)
	assert.Nil(t, env.Data)
}

func TestGetByIDCoercesNumericLookingIDs(t *testing.T) {
	exec := &fakeExecutor{rows: []map[string]any{{"id": 42, "title": "x"}}}
	srv := newTestServer(exec)

	_, env := doRequest(t, srv, http.MethodGet, "/posts/42", "")
	assert.Equal(t, `SELECT * FROM "posts" WHERE "id" = $1 LIMIT 1`, exec.sql)
	assert.Equal(t, []any{int64(42)}, exec.args)

	// single object, not an array
	_, isObject := env.Data.(map[string]any)
	assert.True(t, isObject)

	doRequest(t, srv, http.MethodGet, "/posts/abc", "")
	assert.Equal(t, []any{"abc"}, exec.args)
}

func TestGetByIDNotFound(t *testing.T) {
	srv := newTestServer(&fakeExecutor{})
	w, env := doRequest(t, srv, http.MethodGet, "/posts/999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeExecutor{})
	w, _ := doRequest(t, srv, "HEAD", "/posts", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
