package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/pulse/feed"
	"github.com/dnldd/pulse/service"
	"github.com/dnldd/pulse/shared"
	zlog "github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	tuning, err := loadTuning(cfg.TuningFilepath)
	if err != nil {
		log.Printf("loading tuning: %v", err)
		return
	}

	kind, err := feed.ParseKind(cfg.Feed)
	if err != nil {
		log.Printf("parsing feed kind: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pulseCfg := service.PulseConfig{
		Market:   cfg.Market,
		FeedKind: kind,
		Credentials: shared.Credentials{
			StreamAPIKey: cfg.StreamAPIKey,
			QuoteAPIKey:  cfg.QuoteAPIKey,
			GatewayURL:   cfg.GatewayURL,
		},
		Indicators:       tuning,
		DatabaseEndpoint: cfg.DatabaseEndpoint,
		DatabaseUser:     cfg.DatabaseUser,
		DatabasePass:     cfg.DatabasePass,
		NotifySnapshot: func(snapshot shared.SignalSnapshot) {
			zlog.Debug().Msgf("%s: price %.4f, rsi %.2f, trend %s",
				snapshot.Market, snapshot.Price, snapshot.RSI, snapshot.Trend.String())
		},
		Cancel: cancel,
	}
	pulse, err := service.NewPulse(ctx, &pulseCfg)
	if err != nil {
		log.Printf("creating pulse service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	pulse.Run(ctx)
}
