// Package database persists accepted pattern detections to an rqlite cluster.
package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dnldd/pulse/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createPatternTableSQL = "CREATE TABLE IF NOT EXISTS pattern (id TEXT PRIMARY KEY, market TEXT, kind TEXT, sentiment TEXT, strength REAL, candleindex INTEGER, detectedon INTEGER)"
	persistPatternSQL     = "INSERT INTO pattern(id, market, kind, sentiment, strength, candleindex, detectedon) VALUES(?,?,?,?,?,?,?)"
)

// PatternStorer defines the requirements for storing pattern detections.
type PatternStorer interface {
	// PersistPattern stores the provided pattern detection.
	PersistPattern(ctx context.Context, pattern *shared.Pattern) error
}

// NoopStorer discards pattern detections, used when no database is configured.
type NoopStorer struct{}

// Ensure the noop storer implements the PatternStorer interface.
var _ PatternStorer = (*NoopStorer)(nil)

// PersistPattern discards the provided pattern detection.
func (s *NoopStorer) PersistPattern(ctx context.Context, pattern *shared.Pattern) error {
	return nil
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the PatternStorer interface.
var _ PatternStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createPatternTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistPattern stores the provided pattern detection.
func (db *Database) PersistPattern(ctx context.Context, pattern *shared.Pattern) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistPatternSQL,
			PositionalParams: []any{pattern.ID, pattern.Market, pattern.Kind.String(),
				pattern.Sentiment.String(), pattern.Strength, pattern.CandleIndex,
				pattern.Timestamp},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting pattern %s: %d -> %s", pattern.ID, idx, errStr)
	}

	return nil
}
