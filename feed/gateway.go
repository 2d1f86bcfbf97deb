package feed

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/tidwall/gjson"
)

const (
	// Gateway session endpoints, rooted at the gateway's /v1/api prefix so
	// the configured base url is the bare gateway address.
	gatewayAuthStatusPath = "/v1/api/iserver/auth/status"
	gatewaySearchPath     = "/v1/api/iserver/secdef/search"
	gatewaySnapshotPath   = "/v1/api/iserver/marketdata/snapshot"
	gatewayKeepAlivePath  = "/v1/api/tickle"

	// gatewaySnapshotFields is the field-coded snapshot selection, field 31 is
	// the last price, 84 the bid and 86 the ask.
	gatewaySnapshotFields = "31,84,86"

	// gatewayPollInterval is the market data polling cadence.
	gatewayPollInterval = time.Second
	// gatewayAuthRetryInterval is the cadence for re-checking an
	// unauthenticated session.
	gatewayAuthRetryInterval = time.Second * 10
	// gatewayKeepAliveInterval is the session keepalive cadence, independent
	// of the data poll.
	gatewayKeepAliveInterval = time.Second * 60
)

// GatewayFeed polls a locally running session-authenticated gateway. The
// operator completes the login out-of-band in a browser, the feed verifies
// session liveness before polling, resolves symbols to internal contract ids
// once and keeps the session alive with periodic pings.
type GatewayFeed struct {
	cfg      *Config
	base     string
	interval time.Duration
	httpc    *http.Client
	retry    *backoff

	mtx        sync.Mutex
	symbol     string
	generation uint64
	contracts  map[string]string
	done       chan struct{}
	running    bool
}

// Ensure the gateway feed implements the MarketFeed interface.
var _ MarketFeed = (*GatewayFeed)(nil)

// NewGatewayFeed initializes a new gateway feed. The gateway terminates TLS
// with a self-signed certificate, so verification is skipped for its client.
func NewGatewayFeed(cfg *Config) *GatewayFeed {
	return &GatewayFeed{
		cfg:      cfg,
		base:     strings.TrimSuffix(cfg.Credentials.GatewayURL, "/"),
		interval: gatewayPollInterval,
		httpc: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		retry:     newBackoff(backoffBase, backoffCap),
		symbol:    cfg.Symbol,
		contracts: make(map[string]string),
	}
}

// Connect starts the gateway session.
func (g *GatewayFeed) Connect() error {
	g.mtx.Lock()
	if g.running {
		g.mtx.Unlock()
		return nil
	}
	g.running = true
	g.done = make(chan struct{})
	done := g.done
	g.mtx.Unlock()

	g.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connecting})
	go g.run(done)
	go g.keepAlive(done)

	return nil
}

// request issues a gateway request and returns the parsed response body.
func (g *GatewayFeed) request(method string, path string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, g.base+path, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating gateway request: %w", err)
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return gjson.Result{}, &authError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading %s response: %w", path, err)
	}

	return gjson.ParseBytes(body), nil
}

// authenticated verifies the gateway session is live.
func (g *GatewayFeed) authenticated() (bool, error) {
	msg, err := g.request(http.MethodPost, gatewayAuthStatusPath)
	if err != nil {
		if isAuthStatus(err) {
			return false, nil
		}
		return false, err
	}

	return msg.Get("authenticated").Bool(), nil
}

// resolveContract resolves the provided symbol to the gateway's internal
// contract id, consulting the per-symbol cache first.
func (g *GatewayFeed) resolveContract(symbol string) (string, error) {
	g.mtx.Lock()
	contract, ok := g.contracts[symbol]
	g.mtx.Unlock()
	if ok {
		return contract, nil
	}

	msg, err := g.request(http.MethodGet, fmt.Sprintf("%s?symbol=%s", gatewaySearchPath, symbol))
	if err != nil {
		return "", err
	}

	matches := msg.Array()
	if len(matches) == 0 {
		return "", fmt.Errorf("gateway resolved no contract for %s", symbol)
	}

	contract = matches[0].Get("conid").String()
	if contract == "" {
		return "", fmt.Errorf("gateway contract for %s is missing its conid", symbol)
	}

	g.mtx.Lock()
	g.contracts[symbol] = contract
	g.mtx.Unlock()

	return contract, nil
}

// run drives the auth-check/resolve/poll cycle until the session terminates.
func (g *GatewayFeed) run(done chan struct{}) {
	connected := false
	interval := g.interval

	for {
		g.mtx.Lock()
		symbol := g.symbol
		generation := g.generation
		g.mtx.Unlock()

		live, err := g.authenticated()
		switch {
		case err != nil:
			connected = false
			delay := g.retry.Next()
			interval = delay
			g.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.Reconnecting,
				Message: fmt.Sprintf("gateway unreachable (%v), retrying in %s", err, delay),
			})
		case !live:
			connected = false
			interval = gatewayAuthRetryInterval
			g.cfg.OnStatus(shared.StatusUpdate{
				Status:  shared.FeedError,
				Message: "gateway session is not authenticated, complete the login in a browser",
			})
		default:
			g.retry.Reset()
			interval = g.interval

			tick, ok := g.pollSnapshot(symbol)
			if ok {
				if g.snapshotStale(generation) {
					if g.terminated() {
						return
					}
					break
				}

				if !connected {
					connected = true
					g.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connected})
				}

				g.cfg.OnTick(tick)
			}
		}

		select {
		case <-time.After(interval):
			// do nothing.
		case <-done:
			return
		}
	}
}

// pollSnapshot fetches one field-coded market data snapshot for the provided
// symbol.
func (g *GatewayFeed) pollSnapshot(symbol string) (shared.Tick, bool) {
	contract, err := g.resolveContract(symbol)
	if err != nil {
		g.cfg.Logger.Error().Msgf("resolving %s contract: %v", symbol, err)
		return shared.Tick{}, false
	}

	msg, err := g.request(http.MethodGet, fmt.Sprintf("%s?conids=%s&fields=%s",
		gatewaySnapshotPath, contract, gatewaySnapshotFields))
	if err != nil {
		g.cfg.Logger.Error().Msgf("fetching %s snapshot: %v", symbol, err)
		return shared.Tick{}, false
	}

	rows := msg.Array()
	if len(rows) == 0 {
		g.cfg.Logger.Error().Msgf("empty snapshot response for %s", symbol)
		return shared.Tick{}, false
	}

	last := rows[0].Get("31")
	if !last.Exists() || last.Float() == 0 {
		// The snapshot can omit the last price field right after subscribing,
		// there is simply no tick this cycle.
		return shared.Tick{}, false
	}

	return shared.Tick{
		Market:    symbol,
		Price:     last.Float(),
		Timestamp: time.Now().UnixMilli(),
	}, true
}

// snapshotStale reports whether the provided generation no longer matches the
// active one.
func (g *GatewayFeed) snapshotStale(generation uint64) bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return generation != g.generation || !g.running
}

// terminated reports whether the session has been disconnected.
func (g *GatewayFeed) terminated() bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return !g.running
}

// keepAlive pings the gateway on its own cadence so the browser session stays
// live between data polls.
func (g *GatewayFeed) keepAlive(done chan struct{}) {
	ticker := time.NewTicker(gatewayKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, err := g.request(http.MethodPost, gatewayKeepAlivePath)
			if err != nil {
				g.cfg.Logger.Error().Msgf("gateway keepalive: %v", err)
			}
		case <-done:
			return
		}
	}
}

// ChangeSymbol switches polling to the provided symbol. The resolved contract
// of the previous symbol stays cached.
func (g *GatewayFeed) ChangeSymbol(symbol string) {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	if symbol == g.symbol {
		return
	}

	g.symbol = symbol
	g.generation++
}

// Disconnect terminates the gateway session.
func (g *GatewayFeed) Disconnect() {
	g.mtx.Lock()
	if !g.running {
		g.mtx.Unlock()
		return
	}
	g.running = false
	g.generation++
	close(g.done)
	g.mtx.Unlock()

	g.cfg.OnStatus(shared.StatusUpdate{Status: shared.Disconnected})
}
