// Package feed implements the market data ingestion contract over five
// interchangeable transports, along with the symbol search aggregator.
package feed

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
)

// Kind identifies a concrete feed transport.
type Kind int

const (
	// Synthetic is the in-process deterministic generator.
	Synthetic Kind = iota
	// Stream is the push-streaming websocket transport.
	Stream
	// Poll is the fixed-interval quote polling transport.
	Poll
	// Hybrid attempts streaming and permanently falls back to polling on an
	// authentication failure.
	Hybrid
	// Gateway is the session-authenticated gateway polling transport.
	Gateway
)

// String stringifies the provided feed kind.
func (k Kind) String() string {
	switch k {
	case Synthetic:
		return "synthetic"
	case Stream:
		return "stream"
	case Poll:
		return "poll"
	case Hybrid:
		return "hybrid"
	case Gateway:
		return "gateway"
	default:
		return "unknown kind"
	}
}

// ParseKind parses a feed kind from its string form.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "synthetic":
		return Synthetic, nil
	case "stream":
		return Stream, nil
	case "poll":
		return Poll, nil
	case "hybrid":
		return Hybrid, nil
	case "gateway":
		return Gateway, nil
	default:
		return Synthetic, fmt.Errorf("unknown feed kind: %s", name)
	}
}

// MarketFeed defines the requirements of a market data transport. Ticks and
// connection status transitions are emitted through the configured callbacks.
type MarketFeed interface {
	// Connect starts the feed for the configured symbol.
	Connect() error
	// Disconnect terminates the feed session. It is idempotent and cancels
	// all pending timers and in-flight requests.
	Disconnect()
	// ChangeSymbol switches the feed to the provided symbol.
	ChangeSymbol(symbol string)
}

// Config represents the shared transport configuration.
type Config struct {
	// Symbol is the tracked symbol.
	Symbol string
	// Credentials is the injected vendor credential set.
	Credentials shared.Credentials
	// OnTick relays observed ticks. Invoked from the transport's own
	// execution context.
	OnTick func(tick shared.Tick)
	// OnStatus relays connection status transitions.
	OnStatus func(update shared.StatusUpdate)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Symbol == "" {
		errs = errors.Join(errs, fmt.Errorf("symbol cannot be an empty string"))
	}
	if cfg.OnTick == nil {
		errs = errors.Join(errs, fmt.Errorf("tick callback cannot be nil"))
	}
	if cfg.OnStatus == nil {
		errs = errors.Join(errs, fmt.Errorf("status callback cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// New initializes the feed of the provided kind. A kind whose credential is not
// configured falls back to the synthetic feed so the pipeline always has data.
func New(kind Kind, cfg *Config) (MarketFeed, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating feed config: %w", err)
	}

	switch kind {
	case Stream:
		if cfg.Credentials.StreamAPIKey == "" {
			cfg.Logger.Info().Msg("no stream api key configured, using the synthetic feed")
			return NewSyntheticFeed(DefaultSyntheticConfig(cfg)), nil
		}
		return NewStreamFeed(cfg), nil
	case Poll:
		if cfg.Credentials.QuoteAPIKey == "" {
			cfg.Logger.Info().Msg("no quote api key configured, using the synthetic feed")
			return NewSyntheticFeed(DefaultSyntheticConfig(cfg)), nil
		}
		return NewPollFeed(cfg), nil
	case Hybrid:
		if cfg.Credentials.StreamAPIKey == "" {
			cfg.Logger.Info().Msg("no stream api key configured, using the synthetic feed")
			return NewSyntheticFeed(DefaultSyntheticConfig(cfg)), nil
		}
		return NewHybridFeed(cfg), nil
	case Gateway:
		if cfg.Credentials.GatewayURL == "" {
			cfg.Logger.Info().Msg("no gateway url configured, using the synthetic feed")
			return NewSyntheticFeed(DefaultSyntheticConfig(cfg)), nil
		}
		return NewGatewayFeed(cfg), nil
	case Synthetic:
		return NewSyntheticFeed(DefaultSyntheticConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown feed kind: %d", kind)
	}
}

const (
	// backoffBase is the initial reconnection delay.
	backoffBase = time.Second
	// backoffCap is the maximum reconnection delay.
	backoffCap = time.Second * 30
)

// backoff produces the exponential reconnection delay sequence, doubling from
// the base up to the cap and reset to the base on a successful connection.
type backoff struct {
	base time.Duration
	max  time.Duration
	next time.Duration
}

// newBackoff initializes a backoff with the provided base and cap.
func newBackoff(base time.Duration, max time.Duration) *backoff {
	return &backoff{
		base: base,
		max:  max,
		next: base,
	}
}

// Next returns the current delay and advances the sequence.
func (b *backoff) Next() time.Duration {
	delay := b.next

	b.next *= 2
	if b.next > b.max {
		b.next = b.max
	}

	return delay
}

// Reset restores the sequence to the base delay.
func (b *backoff) Reset() {
	b.next = b.base
}
