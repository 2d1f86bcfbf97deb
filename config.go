package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/dnldd/pulse/feed"
	"github.com/dnldd/pulse/shared"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the configuration struct for the service.
type Config struct {
	// Market is the tracked market symbol.
	Market string
	// Feed is the market data transport kind.
	Feed string
	// StreamAPIKey is the streaming vendor API key.
	StreamAPIKey string
	// QuoteAPIKey is the quote polling vendor API key.
	QuoteAPIKey string
	// GatewayURL is the base url of the local trading gateway.
	GatewayURL string
	// DatabaseEndpoint is the optional rqlite endpoint for pattern storage.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// TuningFilepath is the optional filepath to the indicator tuning file.
	TuningFilepath string

	registeredFlags map[string]bool
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if _, err := feed.ParseKind(cfg.Feed); err != nil {
		errs = errors.Join(errs, err)
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("market", &cfg.Market, "the tracked market symbol")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("feed", &cfg.Feed, "the market data transport kind")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("streamapikey", &cfg.StreamAPIKey, "the streaming vendor api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("quoteapikey", &cfg.QuoteAPIKey, "the quote polling vendor api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("gatewayurl", &cfg.GatewayURL, "the trading gateway base url")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseendpoint", &cfg.DatabaseEndpoint, "the rqlite database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databaseuser", &cfg.DatabaseUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("databasepass", &cfg.DatabasePass, "the database user pass")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("tuningfilepath", &cfg.TuningFilepath, "the indicator tuning filepath")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.Feed == "" {
		cfg.Feed = feed.Synthetic.String()
	}

	return cfg.Validate()
}

// loadTuning loads the indicator tuning from the provided yaml file, falling
// back to the defaults when no file is configured.
func loadTuning(path string) (shared.IndicatorConfig, error) {
	tuning := shared.DefaultIndicatorConfig()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("reading tuning file: %w", err)
	}

	err = yaml.Unmarshal(data, &tuning)
	if err != nil {
		return tuning, fmt.Errorf("parsing tuning file: %w", err)
	}

	err = tuning.Validate()
	if err != nil {
		return tuning, fmt.Errorf("validating tuning: %w", err)
	}

	return tuning, nil
}
