package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func userJSON(username, fullName string) string {
	return fmt.Sprintf(`{
		"data": {
			"attributes": {
				"full_name": %q,
				"social_connections": {"patreon": {"user_name": %q}}
			}
		}
	}`, fullName, username)
}

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", nopLogger{})
}

func TestResolve(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/123", r.URL.Path)
		assert.Equal(t, "full_name,social_connections", r.URL.Query().Get("fields[user]"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, userJSON("alice", "Alice A"))
	})

	username, err := c.Resolve(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestResolveNotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Resolve(context.Background(), "123")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, NotFound, le.Kind)
	assert.Equal(t, "123", le.UserID)
}

func TestResolveNoUsername(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, userJSON("", "Alice A"))
	})

	_, err := c.Resolve(context.Background(), "123")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, NotFound, le.Kind)
}

func TestResolveUnauthorizedNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Resolve(context.Background(), "123")
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, Unauthorized, le.Kind)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, userJSON("alice", "Alice A"))
	})

	username, err := c.Resolve(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, userJSON("alice", "Alice A"))
	})

	username, err := c.Resolve(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestIsUnauthorized(t *testing.T) {
	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsUnauthorized(fmt.Errorf("other")))
	assert.False(t, IsUnauthorized(&LookupError{Kind: Transient}))
	assert.True(t, IsUnauthorized(&LookupError{Kind: Unauthorized}))
}
