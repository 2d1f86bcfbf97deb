package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/tidwall/gjson"
)

const (
	// hybridQuoteURL is the streaming vendor's REST quote endpoint, used once
	// the feed has fallen back to polling.
	hybridQuoteURL = "https://finnhub.io/api/v1/quote"

	// hybridPollInterval is the fallback polling cadence.
	hybridPollInterval = time.Second * 5
)

// HybridFeed attempts the push stream first and permanently falls back to REST
// quote polling for the remainder of the session when stream authentication
// fails. Exhausting both transports surfaces a persistent error state that
// requires explicit operator action.
type HybridFeed struct {
	cfg      *Config
	quoteURL string
	interval time.Duration
	httpc    *http.Client
	retry    *backoff

	mtx        sync.Mutex
	stream     *StreamFeed
	fellBack   bool
	symbol     string
	generation uint64
	done       chan struct{}
	running    bool
}

// Ensure the hybrid feed implements the MarketFeed interface.
var _ MarketFeed = (*HybridFeed)(nil)

// NewHybridFeed initializes a new hybrid feed.
func NewHybridFeed(cfg *Config) *HybridFeed {
	return &HybridFeed{
		cfg:      cfg,
		quoteURL: hybridQuoteURL,
		interval: hybridPollInterval,
		httpc:    &http.Client{Timeout: requestTimeout},
		retry:    newBackoff(backoffBase, backoffCap),
		symbol:   cfg.Symbol,
	}
}

// Connect starts the hybrid session in streaming mode.
func (h *HybridFeed) Connect() error {
	h.mtx.Lock()
	if h.running {
		h.mtx.Unlock()
		return nil
	}
	h.running = true
	h.fellBack = false
	h.done = make(chan struct{})
	h.mtx.Unlock()

	h.retry.Reset()
	streamCfg := *h.cfg
	streamCfg.OnStatus = h.interceptStatus
	h.stream = NewStreamFeed(&streamCfg)

	return h.stream.Connect()
}

// terminate ends the session after an unrecoverable error so a subsequent
// Connect starts a fresh session.
func (h *HybridFeed) terminate(done chan struct{}) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.done != done || !h.running {
		return
	}
	h.running = false
	h.generation++
	close(h.done)
}

// interceptStatus watches stream status transitions, diverting an
// authentication failure into the permanent polling fallback.
func (h *HybridFeed) interceptStatus(update shared.StatusUpdate) {
	if update.Status != shared.FeedError {
		h.cfg.OnStatus(update)
		return
	}

	h.mtx.Lock()
	alreadyFellBack := h.fellBack
	h.fellBack = true
	running := h.running
	done := h.done
	h.mtx.Unlock()

	if alreadyFellBack || !running {
		h.cfg.OnStatus(update)
		return
	}

	h.cfg.Logger.Info().Msgf("stream authentication failed, falling back to quote polling: %s",
		update.Message)
	h.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connecting,
		Message: "stream unavailable, falling back to quote polling"})

	go h.pollLoop(done)
}

// pollLoop drives the fallback polling cycle until the session terminates.
func (h *HybridFeed) pollLoop(done chan struct{}) {
	connected := false
	interval := h.interval

	for {
		h.mtx.Lock()
		symbol := h.symbol
		generation := h.generation
		h.mtx.Unlock()

		tick, outcome, err := h.poll(symbol)
		switch outcome {
		case pollOK:
			interval = h.interval
			h.retry.Reset()

			if h.pollStale(generation) {
				if h.pollTerminated() {
					return
				}
				break
			}

			if !connected {
				connected = true
				h.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connected})
			}

			h.cfg.OnTick(tick)
		case pollRateLimited:
			interval = rateLimitInterval
			h.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.FeedError,
				Message: fmt.Sprintf("quote vendor rate limited, polling every %s", rateLimitInterval),
			})
		case pollNoData:
			h.cfg.Logger.Error().Msgf("no usable quote for %s this cycle: %v", symbol, err)
		case pollFailed:
			if isAuthStatus(err) {
				// Both transports are exhausted for this credential set. End
				// the session before surfacing the error state so a caller
				// reacting to it can immediately reconnect.
				h.terminate(done)
				h.cfg.OnStatus(shared.StatusUpdate{
					Status:  shared.FeedError,
					Message: "stream and quote transports both rejected the configured api key",
				})
				return
			}

			connected = false
			delay := h.retry.Next()
			interval = delay
			h.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.Reconnecting,
				Message: fmt.Sprintf("quote poll failed (%v), retrying in %s", err, delay),
			})
		}

		select {
		case <-time.After(interval):
			// do nothing.
		case <-done:
			return
		}
	}
}

// pollStale reports whether the provided generation no longer matches the
// active one.
func (h *HybridFeed) pollStale(generation uint64) bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	return generation != h.generation || !h.running
}

// pollTerminated reports whether the session has been disconnected.
func (h *HybridFeed) pollTerminated() bool {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	return !h.running
}

// poll issues one quote request for the provided symbol.
func (h *HybridFeed) poll(symbol string) (shared.Tick, pollOutcome, error) {
	params := url.Values{}
	params.Add("symbol", symbol)
	params.Add("token", h.cfg.Credentials.StreamAPIKey)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", h.quoteURL, params.Encode()), nil)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("creating quote request: %w", err)
	}

	resp, err := h.httpc.Do(req)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("fetching quote: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return shared.Tick{}, pollRateLimited, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return shared.Tick{}, pollFailed, &authError{status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return shared.Tick{}, pollFailed, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("reading quote response: %w", err)
	}

	msg := gjson.ParseBytes(body)
	price := msg.Get("c")
	if !price.Exists() || price.Float() == 0 {
		return shared.Tick{}, pollNoData, fmt.Errorf("quote response missing current price field")
	}

	timestamp := msg.Get("t").Int() * 1000
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	return shared.Tick{
		Market:    symbol,
		Price:     price.Float(),
		Timestamp: timestamp,
	}, pollOK, nil
}

// ChangeSymbol switches the hybrid session to the provided symbol, whichever
// mode it is in.
func (h *HybridFeed) ChangeSymbol(symbol string) {
	h.mtx.Lock()
	if symbol == h.symbol {
		h.mtx.Unlock()
		return
	}
	h.symbol = symbol
	h.generation++
	stream := h.stream
	fellBack := h.fellBack
	h.mtx.Unlock()

	if stream != nil && !fellBack {
		stream.ChangeSymbol(symbol)
	}
}

// Disconnect terminates the hybrid session.
func (h *HybridFeed) Disconnect() {
	h.mtx.Lock()
	if !h.running {
		h.mtx.Unlock()
		return
	}
	h.running = false
	h.generation++
	close(h.done)
	stream := h.stream
	fellBack := h.fellBack
	h.mtx.Unlock()

	if stream != nil && !fellBack {
		stream.Disconnect()
		return
	}

	h.cfg.OnStatus(shared.StatusUpdate{Status: shared.Disconnected})
}
