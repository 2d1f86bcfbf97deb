package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// ManagerConfig represents the engine manager configuration.
type ManagerConfig struct {
	// Markets represents the collection of symbols to derive signals for.
	Markets []string
	// Indicators is the indicator tuning shared by all engines.
	Indicators shared.IndicatorConfig
	// NotifySnapshot relays derived snapshots to consumers.
	NotifySnapshot func(snapshot shared.SignalSnapshot)
	// SignalPattern relays accepted pattern detections.
	SignalPattern func(pattern shared.Pattern)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if len(cfg.Markets) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no markets provided for the engine manager"))
	}
	if cfg.NotifySnapshot == nil {
		errs = errors.Join(errs, fmt.Errorf("notify snapshot function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager manages the lifecycle processes of all tracked symbol engines.
type Manager struct {
	cfg     *ManagerConfig
	mtx     sync.RWMutex
	engines map[string]*Engine
	ticks   chan shared.Tick
}

// NewManager initializes a new engine manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine manager config: %w", err)
	}

	mgr := &Manager{
		cfg:     cfg,
		engines: make(map[string]*Engine),
		ticks:   make(chan shared.Tick, bufferSize),
	}

	for idx := range cfg.Markets {
		err := mgr.AddMarket(cfg.Markets[idx])
		if err != nil {
			return nil, fmt.Errorf("adding market: %w", err)
		}
	}

	return mgr, nil
}

// AddMarket creates and tracks an engine for the provided symbol.
func (m *Manager) AddMarket(market string) error {
	engine, err := NewEngine(&EngineConfig{
		Market:         market,
		Indicators:     m.cfg.Indicators,
		NotifySnapshot: m.cfg.NotifySnapshot,
		SignalPattern:  m.cfg.SignalPattern,
		Logger:         m.cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating %s engine: %w", market, err)
	}

	m.mtx.Lock()
	m.engines[market] = engine
	m.mtx.Unlock()

	return nil
}

// RemoveMarket discards the engine of the provided symbol along with its
// history and pattern state.
func (m *Manager) RemoveMarket(market string) {
	m.mtx.Lock()
	delete(m.engines, market)
	m.mtx.Unlock()
}

// SendTick relays the provided tick for processing.
func (m *Manager) SendTick(tick shared.Tick) {
	select {
	case m.ticks <- tick:
		// do nothing.
	default:
		m.cfg.Logger.Error().Msgf("tick channel at capacity: %d/%d",
			len(m.ticks), bufferSize)
	}
}

// handleTick processes the provided tick.
func (m *Manager) handleTick(tick shared.Tick) {
	m.mtx.RLock()
	engine, ok := m.engines[tick.Market]
	m.mtx.RUnlock()
	if !ok {
		m.cfg.Logger.Error().Msgf("no engine found for market %s", tick.Market)
		return
	}

	engine.ProcessTick(tick)
}

// Run manages the lifecycle processes of the engine manager.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case tick := <-m.ticks:
			m.handleTick(tick)
		case <-ctx.Done():
			return
		}
	}
}
