package shared

import (
	"errors"
	"fmt"
)

// Documented period bounds. Operators tune periods within these ranges to trade
// reaction speed against smoothness at the 10 ticks/second cadence.
const (
	MinRSIPeriod        = 20
	MaxRSIPeriod        = 300
	MinMACDFastPeriod   = 5
	MaxMACDFastPeriod   = 150
	MinMACDSlowPeriod   = 20
	MaxMACDSlowPeriod   = 300
	MinMACDSignalPeriod = 5
	MaxMACDSignalPeriod = 100
	MinADXPeriod        = 10
	MaxADXPeriod        = 200
	MinATRPeriod        = 10
	MaxATRPeriod        = 200
	MinEMAShortPeriod   = 5
	MaxEMAShortPeriod   = 150
	MinEMALongPeriod    = 20
	MaxEMALongPeriod    = 400
	MinTicksPerCandle   = 10
	MaxTicksPerCandle   = 500
)

// IndicatorConfig represents the tunable lookback periods of the indicator
// engine. Periods are expressed in ticks.
type IndicatorConfig struct {
	// RSIPeriod is the relative strength index lookback.
	RSIPeriod int `yaml:"rsi_period"`
	// MACDFastPeriod is the fast EMA lookback of the MACD line.
	MACDFastPeriod int `yaml:"macd_fast_period"`
	// MACDSlowPeriod is the slow EMA lookback of the MACD line.
	MACDSlowPeriod int `yaml:"macd_slow_period"`
	// MACDSignalPeriod is the EMA lookback of the MACD signal line.
	MACDSignalPeriod int `yaml:"macd_signal_period"`
	// ADXPeriod is the average directional index lookback.
	ADXPeriod int `yaml:"adx_period"`
	// ATRPeriod is the average true range lookback.
	ATRPeriod int `yaml:"atr_period"`
	// EMAShortPeriod is the short EMA lookback of the macro trend crossover.
	EMAShortPeriod int `yaml:"ema_short_period"`
	// EMALongPeriod is the long EMA lookback of the macro trend crossover.
	EMALongPeriod int `yaml:"ema_long_period"`
	// TicksPerCandle is the number of ticks folded into one synthetic candle.
	TicksPerCandle int `yaml:"ticks_per_candle"`
}

// DefaultIndicatorConfig returns the default indicator tuning, the classic
// second-scale periods multiplied by the 10 ticks/second cadence.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		RSIPeriod:        140,
		MACDFastPeriod:   120,
		MACDSlowPeriod:   260,
		MACDSignalPeriod: 90,
		ADXPeriod:        140,
		ATRPeriod:        140,
		EMAShortPeriod:   50,
		EMALongPeriod:    200,
		TicksPerCandle:   50,
	}
}

// checkRange asserts the provided period is within its documented bounds.
func checkRange(name string, value int, low int, high int) error {
	if value < low || value > high {
		return fmt.Errorf("%s must be in range [%d, %d], got %d", name, low, high, value)
	}

	return nil
}

// Validate asserts the config has sane inputs.
func (cfg *IndicatorConfig) Validate() error {
	var errs error

	errs = errors.Join(errs, checkRange("rsi period", cfg.RSIPeriod, MinRSIPeriod, MaxRSIPeriod))
	errs = errors.Join(errs, checkRange("macd fast period", cfg.MACDFastPeriod, MinMACDFastPeriod, MaxMACDFastPeriod))
	errs = errors.Join(errs, checkRange("macd slow period", cfg.MACDSlowPeriod, MinMACDSlowPeriod, MaxMACDSlowPeriod))
	errs = errors.Join(errs, checkRange("macd signal period", cfg.MACDSignalPeriod, MinMACDSignalPeriod, MaxMACDSignalPeriod))
	errs = errors.Join(errs, checkRange("adx period", cfg.ADXPeriod, MinADXPeriod, MaxADXPeriod))
	errs = errors.Join(errs, checkRange("atr period", cfg.ATRPeriod, MinATRPeriod, MaxATRPeriod))
	errs = errors.Join(errs, checkRange("ema short period", cfg.EMAShortPeriod, MinEMAShortPeriod, MaxEMAShortPeriod))
	errs = errors.Join(errs, checkRange("ema long period", cfg.EMALongPeriod, MinEMALongPeriod, MaxEMALongPeriod))
	errs = errors.Join(errs, checkRange("ticks per candle", cfg.TicksPerCandle, MinTicksPerCandle, MaxTicksPerCandle))

	if errs == nil && cfg.MACDFastPeriod >= cfg.MACDSlowPeriod {
		errs = fmt.Errorf("macd fast period (%d) must be shorter than the slow period (%d)",
			cfg.MACDFastPeriod, cfg.MACDSlowPeriod)
	}
	if errs == nil && cfg.EMAShortPeriod >= cfg.EMALongPeriod {
		errs = fmt.Errorf("ema short period (%d) must be shorter than the long period (%d)",
			cfg.EMAShortPeriod, cfg.EMALongPeriod)
	}

	return errs
}
