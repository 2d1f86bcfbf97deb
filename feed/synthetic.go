package feed

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/dnldd/pulse/shared"
)

const (
	// defaultTickInterval matches the 10 ticks/second ceiling of the pipeline.
	defaultTickInterval = time.Millisecond * 100

	// Default price model parameters.
	defaultStartPrice    = 195.0
	defaultDrift         = 0.00002
	defaultWaveAmplitude = 0.5
	defaultWaveLength    = 100
	defaultJitter        = 0.05
)

// SyntheticConfig represents the synthetic feed configuration. The price model
// is a multiplicative drift with a cosine oscillation and seeded jitter, which
// keeps the generated series deterministic for a given seed.
type SyntheticConfig struct {
	// Symbol is the tracked symbol.
	Symbol string
	// StartPrice is the price of the first tick.
	StartPrice float64
	// Drift is the per-tick multiplicative drift.
	Drift float64
	// WaveAmplitude is the amplitude of the cosine oscillation.
	WaveAmplitude float64
	// WaveLength is the oscillation period in ticks.
	WaveLength int
	// Jitter is the maximum absolute random perturbation per tick.
	Jitter float64
	// Seed seeds the jitter source.
	Seed int64
	// Interval is the tick emission interval.
	Interval time.Duration
	// OnTick relays generated ticks.
	OnTick func(tick shared.Tick)
	// OnStatus relays connection status transitions.
	OnStatus func(update shared.StatusUpdate)
}

// DefaultSyntheticConfig derives a synthetic feed configuration from the
// provided transport config.
func DefaultSyntheticConfig(cfg *Config) *SyntheticConfig {
	return &SyntheticConfig{
		Symbol:        cfg.Symbol,
		StartPrice:    defaultStartPrice,
		Drift:         defaultDrift,
		WaveAmplitude: defaultWaveAmplitude,
		WaveLength:    defaultWaveLength,
		Jitter:        defaultJitter,
		Seed:          time.Now().UnixNano(),
		Interval:      defaultTickInterval,
		OnTick:        cfg.OnTick,
		OnStatus:      cfg.OnStatus,
	}
}

// SyntheticFeed generates ticks in-process with no network. It reaches the
// connected state immediately.
type SyntheticFeed struct {
	cfg *SyntheticConfig

	mtx     sync.Mutex
	symbol  string
	rng     *rand.Rand
	tick    uint64
	done    chan struct{}
	running bool
}

// Ensure the synthetic feed implements the MarketFeed interface.
var _ MarketFeed = (*SyntheticFeed)(nil)

// NewSyntheticFeed initializes a new synthetic feed.
func NewSyntheticFeed(cfg *SyntheticConfig) *SyntheticFeed {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultTickInterval
	}
	if cfg.WaveLength < 1 {
		cfg.WaveLength = defaultWaveLength
	}

	return &SyntheticFeed{
		cfg:    cfg,
		symbol: cfg.Symbol,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// priceAt returns the modeled price of the provided tick index.
func (s *SyntheticFeed) priceAt(tick uint64) float64 {
	base := s.cfg.StartPrice * math.Pow(1+s.cfg.Drift, float64(tick))
	wave := s.cfg.WaveAmplitude * math.Cos(2*math.Pi*float64(tick)/float64(s.cfg.WaveLength))
	jitter := (s.rng.Float64()*2 - 1) * s.cfg.Jitter

	return base + wave + jitter
}

// Step synchronously generates the next tick without waiting on the emission
// interval. It drives deterministic runs in tests and offline replays.
func (s *SyntheticFeed) Step() shared.Tick {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tick := shared.Tick{
		Market:    s.symbol,
		Price:     s.priceAt(s.tick),
		Volume:    float64(1 + s.rng.Intn(100)),
		Timestamp: time.Now().UnixMilli(),
	}
	s.tick++

	return tick
}

// Connect starts the synthetic feed.
func (s *SyntheticFeed) Connect() error {
	s.mtx.Lock()
	if s.running {
		s.mtx.Unlock()
		return nil
	}
	s.running = true
	s.done = make(chan struct{})
	done := s.done
	s.mtx.Unlock()

	s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connecting})
	s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Connected})

	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.cfg.OnTick(s.Step())
			case <-done:
				return
			}
		}
	}()

	return nil
}

// Disconnect terminates the synthetic feed.
func (s *SyntheticFeed) Disconnect() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)

	s.cfg.OnStatus(shared.StatusUpdate{Status: shared.Disconnected})
}

// ChangeSymbol switches the generated symbol. The price model continues
// uninterrupted.
func (s *SyntheticFeed) ChangeSymbol(symbol string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.symbol = symbol
}
