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
	// quoteURL is the quote polling vendor endpoint.
	quoteURL = "https://www.alphavantage.co/query"

	// defaultPollInterval is the normal polling cadence.
	defaultPollInterval = time.Second * 15
	// rateLimitInterval is the extended cadence applied after a rate limit
	// response, restored after the next clean poll.
	rateLimitInterval = time.Second * 60

	// requestTimeout bounds each poll request.
	requestTimeout = time.Second * 10
)

// PollFeed ingests quotes by polling the vendor quote endpoint on a fixed
// interval. Rate limit responses extend the interval instead of erroring
// permanently, and responses that arrive after a symbol change or disconnect
// are discarded.
type PollFeed struct {
	cfg      *Config
	url      string
	interval time.Duration
	httpc    *http.Client
	retry    *backoff

	mtx        sync.Mutex
	symbol     string
	generation uint64
	done       chan struct{}
	running    bool
}

// Ensure the poll feed implements the MarketFeed interface.
var _ MarketFeed = (*PollFeed)(nil)

// NewPollFeed initializes a new polling feed.
func NewPollFeed(cfg *Config) *PollFeed {
	return &PollFeed{
		cfg:      cfg,
		url:      quoteURL,
		interval: defaultPollInterval,
		httpc:    &http.Client{Timeout: requestTimeout},
		retry:    newBackoff(backoffBase, backoffCap),
		symbol:   cfg.Symbol,
	}
}

// Connect starts the polling session.
func (p *PollFeed) Connect() error {
	p.mtx.Lock()
	if p.running {
		p.mtx.Unlock()
		return nil
	}
	p.running = true
	p.done = make(chan struct{})
	done := p.done
	p.mtx.Unlock()

	p.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connecting})
	go p.run(done)

	return nil
}

// snapshotTarget captures the active symbol and generation before a request is
// issued so a stale response can be discarded.
func (p *PollFeed) snapshotTarget() (string, uint64) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.symbol, p.generation
}

// stale reports whether the provided generation no longer matches the active
// one, meaning the response it belongs to must be discarded.
func (p *PollFeed) stale(generation uint64) bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return generation != p.generation || !p.running
}

// terminated reports whether the session has been disconnected.
func (p *PollFeed) terminated() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return !p.running
}

// run drives the polling cycle until the session terminates.
func (p *PollFeed) run(done chan struct{}) {
	connected := false
	interval := p.interval

	for {
		symbol, generation := p.snapshotTarget()

		tick, outcome, err := p.poll(symbol)
		switch outcome {
		case pollOK:
			interval = p.interval
			p.retry.Reset()

			// Discard the response when the symbol changed or the session was
			// torn down while the request was in flight.
			if p.stale(generation) {
				if p.terminated() {
					return
				}
				break
			}

			if !connected {
				connected = true
				p.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connected})
			}

			p.cfg.OnTick(tick)
		case pollRateLimited:
			interval = rateLimitInterval
			p.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.FeedError,
				Message: fmt.Sprintf("quote vendor rate limited, polling every %s", rateLimitInterval),
			})
		case pollNoData:
			// A quote with a missing field is not fatal, there is simply no
			// tick this cycle.
			p.cfg.Logger.Error().Msgf("no usable quote for %s this cycle: %v", symbol, err)
		case pollFailed:
			connected = false
			delay := p.retry.Next()
			interval = delay
			p.cfg.OnStatus(shared.StatusUpdate{
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

// Poll outcomes.
type pollOutcome int

const (
	pollOK pollOutcome = iota
	pollRateLimited
	pollNoData
	pollFailed
)

// poll issues one quote request for the provided symbol and classifies the
// response. Rate limit sentinels are carried in dedicated response fields and
// must be distinguished from an empty quote.
func (p *PollFeed) poll(symbol string) (shared.Tick, pollOutcome, error) {
	params := url.Values{}
	params.Add("function", "GLOBAL_QUOTE")
	params.Add("symbol", symbol)
	params.Add("apikey", p.cfg.Credentials.QuoteAPIKey)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", p.url, params.Encode()), nil)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("creating quote request: %w", err)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("fetching quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return shared.Tick{}, pollRateLimited, nil
	}
	if resp.StatusCode != http.StatusOK {
		return shared.Tick{}, pollFailed, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return shared.Tick{}, pollFailed, fmt.Errorf("reading quote response: %w", err)
	}

	msg := gjson.ParseBytes(body)
	if msg.Get("Note").Exists() || msg.Get("Information").Exists() {
		return shared.Tick{}, pollRateLimited, nil
	}

	price := msg.Get(`Global Quote.05\. price`)
	if !price.Exists() || price.Float() == 0 {
		return shared.Tick{}, pollNoData, fmt.Errorf("quote response missing price field")
	}

	return shared.Tick{
		Market:    symbol,
		Price:     price.Float(),
		Volume:    msg.Get(`Global Quote.06\. volume`).Float(),
		Timestamp: time.Now().UnixMilli(),
	}, pollOK, nil
}

// ChangeSymbol switches polling to the provided symbol. Any in-flight response
// for the previous symbol is discarded by the generation check.
func (p *PollFeed) ChangeSymbol(symbol string) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if symbol == p.symbol {
		return
	}

	p.symbol = symbol
	p.generation++
}

// Disconnect terminates the polling session.
func (p *PollFeed) Disconnect() {
	p.mtx.Lock()
	if !p.running {
		p.mtx.Unlock()
		return
	}
	p.running = false
	p.generation++
	close(p.done)
	p.mtx.Unlock()

	p.cfg.OnStatus(shared.StatusUpdate{Status: shared.Disconnected})
}
