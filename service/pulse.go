// Package service wires the feed, engine, search and storage components into
// the running signal pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/pulse/database"
	"github.com/dnldd/pulse/engine"
	"github.com/dnldd/pulse/feed"
	"github.com/dnldd/pulse/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// persistTimeout bounds each pattern persistence call.
	persistTimeout = time.Second * 5
	// cachePruneIntervalMinutes is the search cache prune cadence.
	cachePruneIntervalMinutes = 1
)

// PulseConfig represents the configuration struct for the pulse service.
type PulseConfig struct {
	// Market is the initially tracked symbol.
	Market string
	// FeedKind selects the market data transport.
	FeedKind feed.Kind
	// Credentials is the injected vendor credential set.
	Credentials shared.Credentials
	// Indicators is the indicator tuning.
	Indicators shared.IndicatorConfig
	// DatabaseEndpoint is the optional rqlite endpoint for pattern storage.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// NotifySnapshot relays derived snapshots to the presentation layer.
	NotifySnapshot func(snapshot shared.SignalSnapshot)
	// NotifyStatus relays feed status transitions to the presentation layer.
	NotifyStatus func(update shared.StatusUpdate)
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *PulseConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided for the pulse service"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}
	if err := cfg.Indicators.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// Pulse represents the market signal pipeline service.
type Pulse struct {
	cfg          *PulseConfig
	engineMgr    *engine.Manager
	marketFeed   feed.MarketFeed
	searcher     *feed.Searcher
	storer       database.PatternStorer
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger

	mtx    sync.Mutex
	market string
}

// NewPulse initializes a new pulse service.
func NewPulse(ctx context.Context, cfg *PulseConfig) (*Pulse, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pulse config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := log.With().Str("service", "pulse").Logger()

	if cfg.NotifySnapshot == nil {
		cfg.NotifySnapshot = func(shared.SignalSnapshot) {}
	}
	if cfg.NotifyStatus == nil {
		cfg.NotifyStatus = func(shared.StatusUpdate) {}
	}

	var storer database.PatternStorer = &database.NoopStorer{}
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}

		storer = db
	}

	pulse := &Pulse{
		cfg:    cfg,
		storer: storer,
		logger: &logger,
		market: cfg.Market,
	}

	engineLogger := logger.With().Str("component", "enginemanager").Logger()
	engineMgr, err := engine.NewManager(&engine.ManagerConfig{
		Markets:        []string{cfg.Market},
		Indicators:     cfg.Indicators,
		NotifySnapshot: cfg.NotifySnapshot,
		SignalPattern:  pulse.handlePattern,
		Logger:         &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating engine manager: %w", err)
	}
	pulse.engineMgr = engineMgr

	feedLogger := logger.With().Str("component", "feed").Logger()
	marketFeed, err := feed.New(cfg.FeedKind, &feed.Config{
		Symbol:      cfg.Market,
		Credentials: cfg.Credentials,
		OnTick:      engineMgr.SendTick,
		OnStatus:    pulse.handleStatus,
		Logger:      &feedLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s feed: %w", cfg.FeedKind.String(), err)
	}
	pulse.marketFeed = marketFeed

	searchLogger := logger.With().Str("component", "searcher").Logger()
	searcher, err := feed.NewSearcher(&feed.SearcherConfig{
		Credentials: cfg.Credentials,
		Logger:      &searchLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating searcher: %w", err)
	}
	pulse.searcher = searcher

	jobScheduler := gocron.NewScheduler(time.UTC)
	_, err = jobScheduler.Every(cachePruneIntervalMinutes).Minute().Do(searcher.Prune)
	if err != nil {
		return nil, fmt.Errorf("scheduling search cache prune: %w", err)
	}
	pulse.jobScheduler = jobScheduler

	return pulse, nil
}

// handleStatus relays feed status transitions, logging every change.
func (p *Pulse) handleStatus(update shared.StatusUpdate) {
	switch update.Status {
	case shared.FeedError:
		p.logger.Error().Msgf("feed status: %s (%s)", update.Status.String(), update.Message)
	default:
		p.logger.Info().Msgf("feed status: %s %s", update.Status.String(), update.Message)
	}

	p.cfg.NotifyStatus(update)
}

// handlePattern persists the provided pattern detection.
func (p *Pulse) handlePattern(pattern shared.Pattern) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	err := p.storer.PersistPattern(ctx, &pattern)
	if err != nil {
		p.logger.Error().Msgf("persisting pattern: %v: %s", err, spew.Sdump(pattern))
	}
}

// ChangeMarket atomically switches the pipeline to the provided symbol,
// discarding the previous symbol's history and pattern state.
func (p *Pulse) ChangeMarket(market string) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if market == p.market {
		return nil
	}

	// The new engine exists before the feed switches so no tick is dropped,
	// and the old engine is removed after so a stale in-flight tick cannot
	// resurrect it.
	err := p.engineMgr.AddMarket(market)
	if err != nil {
		return fmt.Errorf("adding %s engine: %w", market, err)
	}

	p.marketFeed.ChangeSymbol(market)
	p.engineMgr.RemoveMarket(p.market)
	p.market = market

	return nil
}

// Search resolves the provided query to matching symbols across configured
// vendors.
func (p *Pulse) Search(ctx context.Context, query string) ([]shared.SearchResult, error) {
	return p.searcher.Search(ctx, query)
}

// Run manages the lifecycle processes of the pulse service.
func (p *Pulse) Run(ctx context.Context) {
	p.jobScheduler.StartAsync()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.engineMgr.Run(ctx)
	}()

	err := p.marketFeed.Connect()
	if err != nil {
		p.logger.Error().Msgf("connecting %s feed: %v", p.cfg.FeedKind.String(), err)
		p.cfg.Cancel()
	}

	<-ctx.Done()

	p.marketFeed.Disconnect()
	p.jobScheduler.Stop()
	wg.Wait()
}
