package feed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	// streamURL is the streaming vendor websocket endpoint.
	streamURL = "wss://ws.finnhub.io"

	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = time.Second * 10
)

// subscription is the wire form of the subscribe/unsubscribe handshake.
type subscription struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// StreamFeed ingests trades over a persistent websocket. It subscribes to the
// active symbol after connecting, re-subscribes on symbol changes and
// reconnects with exponential backoff on unintentional closes.
type StreamFeed struct {
	cfg *Config
	url string

	mtx     sync.Mutex
	conn    *websocket.Conn
	symbol  string
	done    chan struct{}
	running bool
	retry   *backoff
}

// Ensure the stream feed implements the MarketFeed interface.
var _ MarketFeed = (*StreamFeed)(nil)

// NewStreamFeed initializes a new streaming feed.
func NewStreamFeed(cfg *Config) *StreamFeed {
	return &StreamFeed{
		cfg:    cfg,
		url:    streamURL,
		symbol: cfg.Symbol,
		retry:  newBackoff(backoffBase, backoffCap),
	}
}

// Connect starts the streaming session.
func (s *StreamFeed) Connect() error {
	s.mtx.Lock()
	if s.running {
		s.mtx.Unlock()
		return nil
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mtx.Unlock()

	s.retry.Reset()
	s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connecting})
	go s.run(done)

	return nil
}

// terminate ends the session after an unrecoverable error so a subsequent
// Connect starts a fresh session.
func (s *StreamFeed) terminate(done chan struct{}) {
	s.mtx.Lock()
	if s.done != done || !s.running {
		s.mtx.Unlock()
		return
	}
	s.running = false
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mtx.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// stopped reports whether the session has been terminated.
func (s *StreamFeed) stopped(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// run drives the connect/read/reconnect cycle until the session terminates.
func (s *StreamFeed) run(done chan struct{}) {
	for {
		if s.stopped(done) {
			return
		}

		conn, err := s.dial()
		if err != nil {
			if isAuthStatus(err) {
				// End the session before surfacing the error state so a
				// caller reacting to it can immediately reconnect.
				s.terminate(done)
				s.cfg.OnStatus(shared.StatusUpdate{
					Status:  shared.FeedError,
					Message: "stream authentication rejected, check the configured api key",
				})
				return
			}

			delay := s.retry.Next()
			s.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.Reconnecting,
				Message: fmt.Sprintf("stream unreachable, retrying in %s", delay),
			})

			select {
			case <-time.After(delay):
				continue
			case <-done:
				return
			}
		}

		s.retry.Reset()
		s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connected})

		err = s.readLoop(conn, done)
		conn.Close()
		if s.stopped(done) {
			return
		}

		if isAuthStatus(err) {
			s.terminate(done)
			s.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.FeedError,
				Message: fmt.Sprintf("stream authentication rejected by the vendor: %v", err),
			})
			return
		}

		delay := s.retry.Next()
		s.cfg.OnStatus(shared.StatusUpdate{
			Status:  shared.Reconnecting,
			Message: fmt.Sprintf("stream dropped (%v), retrying in %s", err, delay),
		})

		select {
		case <-time.After(delay):
			// do nothing.
		case <-done:
			return
		}
	}
}

// authError tags a credential rejection, either a handshake status or an
// in-band vendor error message.
type authError struct {
	status int
	msg    string
}

// Error satisfies the error interface.
func (e *authError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("vendor error message: %s", e.msg)
	}
	return fmt.Sprintf("stream handshake rejected with status %d", e.status)
}

// isAuthStatus reports whether the provided dial error is an authentication
// rejection.
func isAuthStatus(err error) bool {
	_, ok := err.(*authError)
	return ok
}

// dial establishes the websocket, authenticating via the token query parameter,
// and subscribes to the active symbol.
func (s *StreamFeed) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.Dial(fmt.Sprintf("%s?token=%s", s.url, s.cfg.Credentials.StreamAPIKey), nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &authError{status: resp.StatusCode}
		}
		return nil, fmt.Errorf("dialing stream: %w", err)
	}

	s.mtx.Lock()
	s.conn = conn
	symbol := s.symbol
	s.mtx.Unlock()

	err = s.send(subscription{Type: "subscribe", Symbol: symbol})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", symbol, err)
	}

	return conn, nil
}

// send writes the provided message to the active connection.
func (s *StreamFeed) send(msg subscription) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling %s message: %w", msg.Type, err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.conn == nil {
		return fmt.Errorf("no active stream connection")
	}

	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// readLoop consumes trade events until the connection drops or the session
// terminates.
func (s *StreamFeed) readLoop(conn *websocket.Conn, done chan struct{}) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg := gjson.ParseBytes(payload)
		switch msg.Get("type").String() {
		case "trade":
			s.handleTrades(msg.Get("data").Array(), done)
		case "ping":
			// do nothing.
		case "error":
			// The vendor authenticates in-band, an error message after a
			// successful upgrade means the session was rejected.
			return &authError{msg: msg.Get("msg").String()}
		}
	}
}

// handleTrades relays the provided trade events for the active symbol,
// discarding trades for any other symbol.
func (s *StreamFeed) handleTrades(trades []gjson.Result, done chan struct{}) {
	s.mtx.Lock()
	symbol := s.symbol
	s.mtx.Unlock()

	for idx := range trades {
		if s.stopped(done) {
			return
		}

		trade := trades[idx]
		if trade.Get("s").String() != symbol {
			continue
		}
		if !trade.Get("p").Exists() {
			s.cfg.Logger.Error().Msgf("trade event missing price field: %s", trade.Raw)
			continue
		}

		s.cfg.OnTick(shared.Tick{
			Market:    symbol,
			Price:     trade.Get("p").Float(),
			Volume:    trade.Get("v").Float(),
			Timestamp: trade.Get("t").Int(),
		})
	}
}

// ChangeSymbol switches the streaming subscription to the provided symbol.
func (s *StreamFeed) ChangeSymbol(symbol string) {
	s.mtx.Lock()
	previous := s.symbol
	s.symbol = symbol
	connected := s.conn != nil
	s.mtx.Unlock()

	if !connected || previous == symbol {
		return
	}

	err := s.send(subscription{Type: "unsubscribe", Symbol: previous})
	if err != nil {
		s.cfg.Logger.Error().Msgf("unsubscribing from %s: %v", previous, err)
	}

	err = s.send(subscription{Type: "subscribe", Symbol: symbol})
	if err != nil {
		s.cfg.Logger.Error().Msgf("subscribing to %s: %v", symbol, err)
	}
}

// Disconnect terminates the streaming session.
func (s *StreamFeed) Disconnect() {
	s.mtx.Lock()
	if !s.running {
		s.mtx.Unlock()
		return
	}
	s.running = false
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mtx.Unlock()

	if conn != nil {
		conn.Close()
	}

	s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Disconnected})
}
