package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func setupHybridFeed(t *testing.T, quoteURL string) (*HybridFeed, chan shared.Tick, chan shared.StatusUpdate) {
	t.Helper()

	ticks := make(chan shared.Tick, 64)
	statuses := make(chan shared.StatusUpdate, 64)

	cfg := testFeedConfig("AAPL", shared.Credentials{StreamAPIKey: "key"})
	cfg.OnTick = func(tick shared.Tick) {
		ticks <- tick
	}
	cfg.OnStatus = func(update shared.StatusUpdate) {
		statuses <- update
	}
	cfg.Logger = &log.Logger

	feed := NewHybridFeed(cfg)
	feed.quoteURL = quoteURL
	feed.interval = time.Millisecond * 10

	// Stand the session up without dialing a live stream.
	feed.running = true
	feed.done = make(chan struct{})

	return feed, ticks, statuses
}

func TestHybridFeedFallsBackOnAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{"c": 190.25, "t": 1700000000}`)
	}))
	defer server.Close()

	feed, ticks, statuses := setupHybridFeed(t, server.URL)

	// A stream authentication failure must divert into the polling fallback.
	feed.interceptStatus(shared.StatusUpdate{
		Status:  shared.FeedError,
		Message: "stream authentication rejected, check the configured api key",
	})

	update := waitStatus(t, statuses, shared.Connecting)
	assert.True(t, strings.Contains(update.Message, "falling back"))
	waitStatus(t, statuses, shared.Connected)

	select {
	case tick := <-ticks:
		assert.Equal(t, "AAPL", tick.Market)
		assert.Equal(t, 190.25, tick.Price)
		assert.Equal(t, int64(1700000000000), tick.Timestamp)
	case <-time.After(time.Second * 5):
		t.Fatal("expected a fallback polled tick")
	}

	feed.Disconnect()
	waitStatus(t, statuses, shared.Disconnected)
}

func TestHybridFeedFallsBackOnlyOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"c": 190.25, "t": 1700000000}`)
	}))
	defer server.Close()

	feed, _, statuses := setupHybridFeed(t, server.URL)

	feed.interceptStatus(shared.StatusUpdate{Status: shared.FeedError, Message: "first"})
	waitStatus(t, statuses, shared.Connected)

	// A second error while already polling passes through unchanged instead
	// of spawning another poll loop.
	feed.interceptStatus(shared.StatusUpdate{Status: shared.FeedError, Message: "second"})
	update := waitStatus(t, statuses, shared.FeedError)
	assert.Equal(t, "second", update.Message)

	feed.Disconnect()
}

func TestHybridFeedExhaustsTransports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	feed, _, statuses := setupHybridFeed(t, server.URL)

	// When the fallback endpoint also rejects the credential the feed
	// surfaces a persistent error state and stops.
	feed.interceptStatus(shared.StatusUpdate{Status: shared.FeedError, Message: "stream rejected"})

	update := waitStatus(t, statuses, shared.FeedError)
	assert.True(t, strings.Contains(update.Message, "both rejected"))

	feed.Disconnect()
}

func TestHybridFeedEndsSessionOnExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	feed, _, statuses := setupHybridFeed(t, server.URL)

	feed.interceptStatus(shared.StatusUpdate{Status: shared.FeedError, Message: "stream rejected"})
	waitStatus(t, statuses, shared.FeedError)

	// The exhausted session ends, clearing the running guard so a later
	// Connect starts fresh instead of silently no-opping.
	feed.mtx.Lock()
	running := feed.running
	feed.mtx.Unlock()
	assert.False(t, running)

	select {
	case <-feed.done:
		// do nothing.
	default:
		t.Fatal("expected the session channel to be closed")
	}
}

func TestHybridFeedPassesThroughStreamStatus(t *testing.T) {
	feed, _, statuses := setupHybridFeed(t, "http://127.0.0.1:0")

	// Non-error stream transitions relay untouched.
	feed.interceptStatus(shared.StatusUpdate{Status: shared.Connected})
	assert.Equal(t, shared.Connected, (<-statuses).Status)

	feed.interceptStatus(shared.StatusUpdate{Status: shared.Reconnecting, Message: "drop"})
	assert.Equal(t, shared.Reconnecting, (<-statuses).Status)
}
