package relayclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHealthRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, WithRetry(3), WithTimeout(2*time.Second))
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("hits = %d, want 2", got)
	}
}

func TestHealthDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, WithRetry(3))
	err := c.Health(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("err = %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestLobbyDecodesAndReportsDisabled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"abcdefghij","name":"casual","owner":{"id":"p1","name":"ann","color":"w","status":"Playing"},"finished":false}]`))
	}))
	defer ts.Close()

	rooms, err := NewHTTPClient(ts.URL).Lobby(context.Background())
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != "abcdefghij" || rooms[0].Owner.Name != "ann" {
		t.Fatalf("rooms = %+v", rooms)
	}

	empty := httptest.NewServer(http.NotFoundHandler())
	defer empty.Close()
	if _, err := NewHTTPClient(empty.URL).Lobby(context.Background()); !errors.Is(err, ErrLobbyDisabled) {
		t.Fatalf("err = %v, want ErrLobbyDisabled", err)
	}
}

func TestBackoffDurationIsCapped(t *testing.T) {
	if got := backoffDuration(1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1 = %v", got)
	}
	if backoffDuration(10) != backoffDuration(6) {
		t.Fatalf("backoff not capped")
	}
}
