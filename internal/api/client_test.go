package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dopejs/varman/internal/variable"
)

// roundTripFunc lets a test answer requests without a listener.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", OrgID: "1", UserID: "u-1"}, srv.Client())
}

func TestListFiltersByScopeID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/variables", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("scope_id"))
		assert.Equal(t, "1", r.Header.Get(HeaderOrgID))
		assert.Equal(t, "u-1", r.Header.Get(HeaderUserID))
		// a backend that ignores the query parameter
		json.NewEncoder(w).Encode([]variable.Variable{
			{UID: "a", Name: "A", ScopeID: "1"},
			{UID: "b", Name: "B", ScopeID: "2"},
		})
	})

	vars, err := c.List(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "a", vars[0].UID)
}

func TestListWithoutScopeKeepsAll(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		json.NewEncoder(w).Encode([]variable.Variable{{UID: "a", ScopeID: "1"}, {UID: "b", ScopeID: "2"}})
	})

	vars, err := c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vars, 2)
}

func TestListMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>")
	})

	_, err := c.List(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestCreateEncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "MY_VAR", q.Get("name"))
		assert.Equal(t, "a & b", q.Get("description"))
		assert.Equal(t, "x=y", q.Get("value"))
		assert.Equal(t, "folder", q.Get("scope"))
		assert.Equal(t, "f-9", q.Get("scope_id"))
		json.NewEncoder(w).Encode(variable.Variable{ID: "10", UID: "new", Name: q.Get("name"), ScopeID: "f-9"})
	})

	got, err := c.Create(context.Background(), variable.Variable{
		Name:        "MY_VAR",
		Description: "a & b",
		Value:       "x=y",
		Scope:       "folder",
		ScopeID:     "f-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", got.UID)
	assert.Equal(t, "10", got.ID)
}

func TestUpdateSendsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/variables/uid/abc", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"name":        "A",
			"uid":         "abc",
			"description": "d",
			"value":       "v",
			"type":        "constant",
		}, body)
		json.NewEncoder(w).Encode(map[string]string{"status": "updated", "uid": "abc"})
	})

	err := c.Update(context.Background(), variable.Variable{UID: "abc", Name: "A", Description: "d", Value: "v", Type: "constant"})
	assert.NoError(t, err)
}

func TestUpdateRequiresUID(t *testing.T) {
	c := New(Config{BaseURL: "http://unused"}, nil)
	assert.Error(t, c.Update(context.Background(), variable.Variable{Name: "A"}))
	assert.Error(t, c.Delete(context.Background(), ""))
}

func TestDeleteNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"variable not found"}`)
	})

	err := c.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsConnectionError(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "variable not found", apiErr.Msg)
	assert.Equal(t, "server returned 404: variable not found", err.Error())
}

func TestServerErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.List(context.Background(), "1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "server returned 500 Internal Server Error", err.Error())
}

func TestConnectionError(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp 127.0.0.1:1: connection refused")
	})}
	c := New(Config{BaseURL: "http://127.0.0.1:1"}, httpClient)

	_, err := c.List(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
	assert.False(t, IsNotFound(err))
}

func TestCancelledIsNotConnectionError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]variable.Variable{})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsConnectionError(err))
}
