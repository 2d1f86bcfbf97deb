package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dnldd/pulse/shared"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config",
			cfg: Config{
				Market: "AAPL",
				Feed:   "synthetic",
			},
			wantErr: nil,
		},
		{
			name: "missing market",
			cfg: Config{
				Feed: "synthetic",
			},
			wantErr: []string{"market cannot be an empty string"},
		},
		{
			name: "unknown feed kind",
			cfg: Config{
				Market: "AAPL",
				Feed:   "telegraph",
			},
			wantErr: []string{"unknown feed kind"},
		},
		{
			name:    "missing market and unknown feed kind",
			cfg:     Config{Feed: "telegraph"},
			wantErr: []string{"market cannot be an empty string", "unknown feed kind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error(s) %v, got none", tt.wantErr)
					return
				}
				for _, want := range tt.wantErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	origEnv := os.Environ()
	defer func() {
		os.Args = origArgs
		for _, kv := range origEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				os.Setenv(parts[0], parts[1])
			}
		}
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name: "all from env",
			env: map[string]string{
				"market":      "AAPL",
				"feed":        "poll",
				"quoteapikey": "apikey",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Market:      "AAPL",
				Feed:        "poll",
				QuoteAPIKey: "apikey",
			},
		},
		{
			name:      "all from flags",
			env:       map[string]string{},
			args:      []string{"cmd", "-market=AAPL", "-feed=stream", "-streamapikey=apikey"},
			expectErr: false,
			expectCfg: Config{
				Market:       "AAPL",
				Feed:         "stream",
				StreamAPIKey: "apikey",
			},
		},
		{
			name:      "feed defaults to synthetic",
			env:       map[string]string{"market": "AAPL"},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Market: "AAPL",
				Feed:   "synthetic",
			},
		},
		{
			name:        "missing market",
			env:         map[string]string{},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"market cannot be an empty string"},
		},
		{
			name:        "unknown feed kind",
			env:         map[string]string{"market": "AAPL"},
			args:        []string{"cmd", "-feed=telegraph"},
			expectErr:   true,
			expectInErr: []string{"unknown feed kind"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			// Set environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Set command-line arguments
			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, "") // don't load .env file

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if cfg.Market != tt.expectCfg.Market {
					t.Errorf("Market: got %v, want %v", cfg.Market, tt.expectCfg.Market)
				}
				if cfg.Feed != tt.expectCfg.Feed {
					t.Errorf("Feed: got %v, want %v", cfg.Feed, tt.expectCfg.Feed)
				}
				if tt.expectCfg.StreamAPIKey != "" && cfg.StreamAPIKey != tt.expectCfg.StreamAPIKey {
					t.Errorf("StreamAPIKey: got %v, want %v", cfg.StreamAPIKey, tt.expectCfg.StreamAPIKey)
				}
				if tt.expectCfg.QuoteAPIKey != "" && cfg.QuoteAPIKey != tt.expectCfg.QuoteAPIKey {
					t.Errorf("QuoteAPIKey: got %v, want %v", cfg.QuoteAPIKey, tt.expectCfg.QuoteAPIKey)
				}
			}

			// Clean up env
			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoadTuning(t *testing.T) {
	// Ensure the empty path yields the defaults.
	tuning, err := loadTuning("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tuning != shared.DefaultIndicatorConfig() {
		t.Errorf("expected the default tuning, got %+v", tuning)
	}

	// Ensure a tuning file overrides the defaults with validation.
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "rsi_period: 100\nticks_per_candle: 25\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing tuning file: %v", err)
	}

	tuning, err = loadTuning(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tuning.RSIPeriod != 100 {
		t.Errorf("RSIPeriod: got %v, want 100", tuning.RSIPeriod)
	}
	if tuning.TicksPerCandle != 25 {
		t.Errorf("TicksPerCandle: got %v, want 25", tuning.TicksPerCandle)
	}
	if tuning.MACDSlowPeriod != shared.DefaultIndicatorConfig().MACDSlowPeriod {
		t.Errorf("MACDSlowPeriod: expected the default, got %v", tuning.MACDSlowPeriod)
	}

	// Ensure out-of-bounds tuning is rejected.
	if err := os.WriteFile(path, []byte("rsi_period: 1\n"), 0o644); err != nil {
		t.Fatalf("writing tuning file: %v", err)
	}
	if _, err := loadTuning(path); err == nil {
		t.Error("expected an out-of-bounds tuning error")
	}

	// Ensure a missing file is reported.
	if _, err := loadTuning(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected a missing file error")
	}
}
