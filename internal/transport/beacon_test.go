// ABOUTME: Tests for the fire-and-forget beacon sender
// ABOUTME: Verifies non-blocking delivery and silent failure handling

package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPBeacon_Delivers(t *testing.T) {
	var hits atomic.Int32
	var gotBody atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	beacon := NewHTTPBeacon(2*time.Second, nil)
	beacon.Send(srv.URL, []byte(`{"session_id":"abc123"}`))
	beacon.Flush()

	require.Equal(t, int32(1), hits.Load())
	assert.JSONEq(t, `{"session_id":"abc123"}`, gotBody.Load().(string))
}

func TestHTTPBeacon_ReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	beacon := NewHTTPBeacon(5*time.Second, nil)

	start := time.Now()
	beacon.Send(srv.URL, []byte(`{}`))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Send must not block on delivery")
}

func TestHTTPBeacon_SwallowsFailure(t *testing.T) {
	beacon := NewHTTPBeacon(500*time.Millisecond, nil)

	// Nothing listens here; the failure must be silent
	beacon.Send("http://127.0.0.1:1/api/v1/conversation-end", []byte(`{}`))
	beacon.Flush()
}
