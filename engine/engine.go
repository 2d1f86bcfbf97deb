package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/pulse/candle"
	"github.com/dnldd/pulse/indicator"
	"github.com/dnldd/pulse/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EngineConfig represents the configuration of a symbol engine.
type EngineConfig struct {
	// Market is the symbol the engine derives signals for.
	Market string
	// Indicators is the indicator tuning.
	Indicators shared.IndicatorConfig
	// NotifySnapshot relays the derived snapshot after every processed tick.
	NotifySnapshot func(snapshot shared.SignalSnapshot)
	// SignalPattern relays accepted pattern detections.
	SignalPattern func(pattern shared.Pattern)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.NotifySnapshot == nil {
		errs = errors.Join(errs, fmt.Errorf("notify snapshot function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}
	if err := cfg.Indicators.Validate(); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// Engine derives the signal snapshot of a single symbol. Processing a tick is
// the critical section of the pipeline, a push transport can deliver ticks
// back-to-back faster than the analytics complete, so all buffer mutation and
// recomputation is serialized behind one mutex.
type Engine struct {
	cfg     *EngineConfig
	mtx     sync.Mutex
	history *History
	tracker candle.Tracker

	completedCandles uint64
	lastPattern      *shared.Pattern

	sessionOpen float64
	sessionHigh float64
	sessionLow  float64
}

// NewEngine initializes a new symbol engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		history: NewHistory(DefaultHistoryCapacity),
	}, nil
}

// Market returns the symbol the engine tracks.
func (e *Engine) Market() string {
	return e.cfg.Market
}

// ProcessTick folds the provided tick into the history, recomputes the signal
// set and publishes the resulting snapshot.
func (e *Engine) ProcessTick(tick shared.Tick) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	e.history.Append(tick.Price)
	e.trackSession(tick.Price)

	prices := e.history.Prices()
	cfg := &e.cfg.Indicators

	candles := candle.Aggregate(prices, cfg.TicksPerCandle)
	e.detectPattern(candles, tick)

	snapshot := shared.SignalSnapshot{
		Market:     e.cfg.Market,
		Price:      tick.Price,
		Open:       e.sessionOpen,
		High:       e.sessionHigh,
		Low:        e.sessionLow,
		Volume:     tick.Volume,
		RSI:        indicator.RSI(prices, cfg.RSIPeriod),
		MACD:       indicator.MACD(prices, cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod),
		ADX:        indicator.ADX(prices, cfg.ADXPeriod),
		MacroTrend: indicator.MacroTrend(prices, cfg.EMAShortPeriod, cfg.EMALongPeriod),
		Volatility: indicator.Volatility(prices),
		Momentum:   indicator.Momentum(prices),
		Trend:      indicator.ClassifyTrend(prices),
		Candles:    candles,
		Pattern:    e.lastPattern,
		TotalTicks: e.history.TotalTicks(),
		Timestamp:  tick.Timestamp,
	}

	snapshot.ATR = indicator.ATR(prices, cfg.ATRPeriod)
	snapshot.ATRNormalized = indicator.NormalizeATR(snapshot.ATR, tick.Price)

	if e.sessionOpen != 0 {
		snapshot.Change = tick.Price - e.sessionOpen
		snapshot.ChangePercent = snapshot.Change / e.sessionOpen * 100
	}

	e.cfg.NotifySnapshot(snapshot)
}

// trackSession maintains the session open/high/low for the snapshot.
func (e *Engine) trackSession(price float64) {
	if e.sessionOpen == 0 {
		e.sessionOpen = price
		e.sessionHigh = price
		e.sessionLow = price
		return
	}

	if price > e.sessionHigh {
		e.sessionHigh = price
	}
	if price < e.sessionLow {
		e.sessionLow = price
	}
}

// detectPattern scans for formations when the tick counter crosses a candle
// boundary, applying the priority ordering and the cooldown.
func (e *Engine) detectPattern(candles []shared.Candlestick, tick shared.Tick) {
	completed := e.history.TotalTicks() / uint64(e.cfg.Indicators.TicksPerCandle)
	if completed == e.completedCandles {
		return
	}
	e.completedCandles = completed

	detected, ok := candle.Detect(candles)
	if !ok {
		return
	}

	// The cooldown is measured in completed candles since the previously
	// accepted detection, decoupled from buffer eviction.
	if !e.tracker.Accept(int(completed)) {
		return
	}

	detected.ID = uuid.NewString()
	detected.Market = e.cfg.Market
	detected.Timestamp = tick.Timestamp
	e.lastPattern = &detected

	e.cfg.Logger.Info().Msgf("detected %s (strength %.2f) on %s",
		detected.Kind.String(), detected.Strength, e.cfg.Market)

	if e.cfg.SignalPattern != nil {
		e.cfg.SignalPattern(detected)
	}
}
