package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const (
	// searchCacheTTL is the lifetime of a cached search result set.
	searchCacheTTL = time.Minute * 5

	// Vendor search endpoints.
	streamSearchURL = "https://finnhub.io/api/v1/search"
	quoteSearchURL  = "https://www.alphavantage.co/query"
)

// cacheEntry is an immutable cached search result set.
type cacheEntry struct {
	results   []shared.SearchResult
	fetchedAt time.Time
}

// SearcherConfig represents the symbol searcher configuration.
type SearcherConfig struct {
	// Credentials is the injected vendor credential set. Only vendors with a
	// configured credential are queried.
	Credentials shared.Credentials
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *SearcherConfig) Validate() error {
	var errs error

	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Searcher fans a symbol search out to every vendor with a configured
// credential and merges the results behind a TTL cache.
type Searcher struct {
	cfg      *SearcherConfig
	httpc    *http.Client
	gatewayc *http.Client

	streamURL  string
	quoteURL   string
	gatewayURL string

	mtx   sync.Mutex
	cache map[string]cacheEntry
}

// NewSearcher initializes a new symbol searcher.
func NewSearcher(cfg *SearcherConfig) (*Searcher, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating searcher config: %w", err)
	}

	return &Searcher{
		cfg:   cfg,
		httpc: &http.Client{Timeout: requestTimeout},
		// The gateway terminates TLS with a self-signed certificate, so
		// verification is skipped for its client.
		gatewayc: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		streamURL:  streamSearchURL,
		quoteURL:   quoteSearchURL,
		gatewayURL: strings.TrimSuffix(cfg.Credentials.GatewayURL, "/"),
		cache:      make(map[string]cacheEntry),
	}, nil
}

// cached returns the unexpired cached result set for the provided query.
func (s *Searcher) cached(query string) ([]shared.SearchResult, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry, ok := s.cache[query]
	if !ok || time.Since(entry.fetchedAt) > searchCacheTTL {
		return nil, false
	}

	return entry.results, true
}

// store caches the provided result set for the query.
func (s *Searcher) store(query string, results []shared.SearchResult) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.cache[query] = cacheEntry{
		results:   results,
		fetchedAt: time.Now(),
	}
}

// Prune drops expired cache entries.
func (s *Searcher) Prune() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for query, entry := range s.cache {
		if time.Since(entry.fetchedAt) > searchCacheTTL {
			delete(s.cache, query)
		}
	}
}

// Search resolves the provided query to matching symbols. Vendors are queried
// concurrently and an individual vendor failure only degrades the result set,
// it never fails the whole search. A search with no configured credentials
// returns an empty result set.
func (s *Searcher) Search(ctx context.Context, query string) ([]shared.SearchResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	if normalized == "" {
		return nil, fmt.Errorf("search query cannot be an empty string")
	}

	if results, ok := s.cached(normalized); ok {
		return results, nil
	}

	// Vendor order is fixed so deduplication is deterministic,
	// first-seen-wins.
	type vendor struct {
		name  string
		run   func(ctx context.Context, query string) ([]shared.SearchResult, error)
		ready bool
	}
	vendors := []vendor{
		{name: "stream", run: s.searchStream, ready: s.cfg.Credentials.StreamAPIKey != ""},
		{name: "quote", run: s.searchQuote, ready: s.cfg.Credentials.QuoteAPIKey != ""},
		{name: "gateway", run: s.searchGateway, ready: s.gatewayURL != ""},
	}

	partial := make([][]shared.SearchResult, len(vendors))
	var wg sync.WaitGroup
	for idx := range vendors {
		if !vendors[idx].ready {
			continue
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			results, err := vendors[idx].run(ctx, normalized)
			if err != nil {
				s.cfg.Logger.Error().Msgf("searching %s vendor for %q: %v",
					vendors[idx].name, normalized, err)
				return
			}

			partial[idx] = results
		}(idx)
	}
	wg.Wait()

	merged := make([]shared.SearchResult, 0)
	seen := make(map[string]bool)
	for idx := range partial {
		for _, result := range partial[idx] {
			if result.Symbol == "" || seen[result.Symbol] {
				continue
			}

			seen[result.Symbol] = true
			merged = append(merged, result)
		}
	}

	s.store(normalized, merged)

	return merged, nil
}

// get issues a search request through the provided client and returns the
// parsed response body.
func (s *Searcher) get(ctx context.Context, httpc *http.Client, formedURL string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("fetching search results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, fmt.Errorf("search endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading search response: %w", err)
	}

	return gjson.ParseBytes(body), nil
}

// searchStream queries the streaming vendor's symbol lookup.
func (s *Searcher) searchStream(ctx context.Context, query string) ([]shared.SearchResult, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("token", s.cfg.Credentials.StreamAPIKey)

	msg, err := s.get(ctx, s.httpc, fmt.Sprintf("%s?%s", s.streamURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	matches := msg.Get("result").Array()
	results := make([]shared.SearchResult, 0, len(matches))
	for idx := range matches {
		results = append(results, shared.SearchResult{
			Symbol:      matches[idx].Get("symbol").String(),
			Description: matches[idx].Get("description").String(),
			Exchange:    matches[idx].Get("type").String(),
			Source:      "stream",
		})
	}

	return results, nil
}

// searchQuote queries the quote vendor's symbol lookup.
func (s *Searcher) searchQuote(ctx context.Context, query string) ([]shared.SearchResult, error) {
	params := url.Values{}
	params.Add("function", "SYMBOL_SEARCH")
	params.Add("keywords", query)
	params.Add("apikey", s.cfg.Credentials.QuoteAPIKey)

	msg, err := s.get(ctx, s.httpc, fmt.Sprintf("%s?%s", s.quoteURL, params.Encode()))
	if err != nil {
		return nil, err
	}

	matches := msg.Get("bestMatches").Array()
	results := make([]shared.SearchResult, 0, len(matches))
	for idx := range matches {
		results = append(results, shared.SearchResult{
			Symbol:      matches[idx].Get(`1\. symbol`).String(),
			Description: matches[idx].Get(`2\. name`).String(),
			Exchange:    matches[idx].Get(`4\. region`).String(),
			Source:      "quote",
		})
	}

	return results, nil
}

// searchGateway queries the gateway's contract lookup.
func (s *Searcher) searchGateway(ctx context.Context, query string) ([]shared.SearchResult, error) {
	msg, err := s.get(ctx, s.gatewayc, fmt.Sprintf("%s%s?symbol=%s", s.gatewayURL, gatewaySearchPath, query))
	if err != nil {
		return nil, err
	}

	matches := msg.Array()
	results := make([]shared.SearchResult, 0, len(matches))
	for idx := range matches {
		results = append(results, shared.SearchResult{
			Symbol:      matches[idx].Get("symbol").String(),
			Description: matches[idx].Get("companyName").String(),
			Exchange:    matches[idx].Get("description").String(),
			Source:      "gateway",
		})
	}

	return results, nil
}
