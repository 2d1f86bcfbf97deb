package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

// wsURL rewrites an httptest server url to the websocket scheme.
func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func setupStreamFeed(t *testing.T, url string) (*StreamFeed, chan shared.Tick, chan shared.StatusUpdate) {
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

	feed := NewStreamFeed(cfg)
	feed.url = url

	return feed, ticks, statuses
}

func TestStreamFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("token"))

		conn, err := upgrader.Upgrade(w, r, nil)
		assert.NoError(t, err)
		defer conn.Close()

		// Wait for the subscription handshake before emitting trades.
		var msg subscription
		assert.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "subscribe", msg.Type)
		assert.Equal(t, "AAPL", msg.Symbol)

		trades := `{"type":"trade","data":[` +
			`{"s":"AAPL","p":190.5,"t":1700000000000,"v":25},` +
			`{"s":"MSFT","p":410.0,"t":1700000000001,"v":5},` +
			`{"s":"AAPL","t":1700000000002,"v":5}]}`
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(trades)))
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

		// Hold the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	feed, ticks, statuses := setupStreamFeed(t, wsURL(server))

	assert.NoError(t, feed.Connect())
	waitStatus(t, statuses, shared.Connecting)
	waitStatus(t, statuses, shared.Connected)

	// Ensure only the subscribed symbol's priced trades surface.
	select {
	case tick := <-ticks:
		assert.Equal(t, "AAPL", tick.Market)
		assert.Equal(t, 190.5, tick.Price)
		assert.Equal(t, 25.0, tick.Volume)
		assert.Equal(t, int64(1700000000000), tick.Timestamp)
	case <-time.After(time.Second * 5):
		t.Fatal("expected a streamed tick")
	}

	select {
	case tick := <-ticks:
		t.Fatalf("unexpected tick for %s", tick.Market)
	case <-time.After(time.Millisecond * 100):
		// do nothing.
	}

	feed.Disconnect()
	waitStatus(t, statuses, shared.Disconnected)
}

func TestStreamFeedAuthRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	feed, _, statuses := setupStreamFeed(t, wsURL(server))

	// Ensure a credential rejection is terminal, not retried.
	assert.NoError(t, feed.Connect())
	update := waitStatus(t, statuses, shared.FeedError)
	assert.True(t, strings.Contains(update.Message, "authentication"))

	select {
	case update := <-statuses:
		t.Fatalf("unexpected status after auth rejection: %s", update.Status.String())
	case <-time.After(time.Millisecond * 200):
		// do nothing.
	}

	feed.Disconnect()
}

func TestStreamFeedRestartsAfterAuthRejection(t *testing.T) {
	counter := &countingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}}
	server := httptest.NewServer(counter)
	defer server.Close()

	feed, _, statuses := setupStreamFeed(t, wsURL(server))

	// A terminal credential rejection ends the session, so a later Connect
	// must dial again instead of silently no-opping.
	assert.NoError(t, feed.Connect())
	waitStatus(t, statuses, shared.FeedError)

	assert.NoError(t, feed.Connect())
	waitStatus(t, statuses, shared.FeedError)

	assert.Equal(t, 2, counter.requestCount())
}

func TestStreamFeedInBandRejection(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg subscription
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","msg":"Invalid API key"}`))
		assert.NoError(t, err)

		// Hold the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	feed, _, statuses := setupStreamFeed(t, wsURL(server))

	// A vendor error message after a successful upgrade is a terminal
	// rejection, not a healthy idle session.
	assert.NoError(t, feed.Connect())
	waitStatus(t, statuses, shared.Connected)
	update := waitStatus(t, statuses, shared.FeedError)
	assert.True(t, strings.Contains(update.Message, "Invalid API key"))

	select {
	case update := <-statuses:
		t.Fatalf("unexpected status after vendor rejection: %s", update.Status.String())
	case <-time.After(time.Millisecond * 200):
		// do nothing.
	}
}

func TestStreamFeedReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	connections := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		connections <- struct{}{}

		// Drop the connection immediately after the handshake.
		conn.Close()
	}))
	defer server.Close()

	feed, _, statuses := setupStreamFeed(t, wsURL(server))

	// Ensure an unintentional drop triggers a reconnection attempt.
	assert.NoError(t, feed.Connect())
	<-connections
	waitStatus(t, statuses, shared.Reconnecting)

	select {
	case <-connections:
	case <-time.After(time.Second * 10):
		t.Fatal("expected a reconnection")
	}

	feed.Disconnect()
}
