package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/internal/browser"
	"github.com/manjain15/propwealth-scraper/internal/config"
	"github.com/manjain15/propwealth-scraper/internal/observability"
	"github.com/manjain15/propwealth-scraper/internal/provider/dsrdata"
	"github.com/manjain15/propwealth-scraper/internal/provider/pricefinder"
	"github.com/manjain15/propwealth-scraper/internal/service"
	"github.com/manjain15/propwealth-scraper/internal/session"
	"github.com/manjain15/propwealth-scraper/internal/store"
)

// Components holds the initialized services a scrape command needs. The
// struct centralizes lifecycle management so every command shuts down the
// browser and the database pool the same way.
type Components struct {
	Aggregator     *service.Aggregator
	BrowserManager *browser.Manager

	dbPool *pgxpool.Pool
}

// Shutdown releases resources in dependency order.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()

	if c.BrowserManager != nil {
		// Use a fresh context so shutdown completes even after the main
		// context was canceled.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.BrowserManager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}

	if c.dbPool != nil {
		c.dbPool.Close()
	}

	logger.Debug("All components shut down.")
}

// buildComponents performs the dependency injection for a scrape run.
func buildComponents(ctx context.Context, cfg *config.Config) (*Components, error) {
	logger := observability.GetLogger()
	components := &Components{}

	var initErr error
	defer func() {
		if initErr != nil {
			components.Shutdown()
		}
	}()

	// Shared headless browser.
	components.BrowserManager = browser.NewManager(ctx, logger, cfg.Browser)
	logger.Debug("Browser manager initialized.")

	// Market-stats provider: browser login flow behind a cached session,
	// direct HTTP for the data itself.
	flow := dsrdata.NewFlow(components.BrowserManager, cfg.Providers.DSRData, cfg.Session.TTL, logger)
	sessions := session.NewManager(flow, logger)
	httpClient := &http.Client{Timeout: cfg.Network.Timeout}
	statsClient := dsrdata.NewClient(httpClient, sessions, cfg.Providers.DSRData, logger)

	// Navigation-driven property provider.
	extractor := pricefinder.NewExtractor(components.BrowserManager, cfg.Providers.Pricefinder, logger)

	opts := []service.Option{}

	// The archive is optional. No URL means no persistence, and the scrape
	// path is unaffected either way.
	if cfg.Postgres.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			initErr = fmt.Errorf("failed to create database connection pool: %w", err)
			return nil, initErr
		}
		components.dbPool = dbPool

		archive, err := store.New(ctx, dbPool, logger)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize archive store: %w", err)
			return nil, initErr
		}
		opts = append(opts, service.WithArchive(archive))
		logger.Debug("Archive store initialized.")
	}

	components.Aggregator = service.NewAggregator(statsClient, extractor, logger, opts...)
	logger.Info("All components initialized successfully.")
	return components, nil
}
