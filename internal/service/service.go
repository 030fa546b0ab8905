// Package service is the inbound contract of the scraping pipeline: the
// three operations the routing layer consumes, plus the optional narrative
// and archive collaborators.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

// StatsFetcher retrieves the normalized market snapshot for a location.
// Implemented by dsrdata.Client.
type StatsFetcher interface {
	FetchStats(ctx context.Context, loc schemas.Location) (schemas.MarketStats, error)
}

// PropertyExtractor retrieves property records by driving a provider's UI.
// Implemented by pricefinder.Extractor.
type PropertyExtractor interface {
	Property(ctx context.Context, address string) (schemas.PropertyRecord, error)
	Comparables(ctx context.Context, addresses []string) []schemas.ComparableRecord
}

// NarrativeGenerator turns a market snapshot into prose commentary. This is
// an external collaborator; the pipeline supplies the context object and
// nothing else. A failing generator degrades to empty commentary.
type NarrativeGenerator interface {
	MarketCommentary(ctx context.Context, stats schemas.MarketStats) (string, error)
}

// Archiver persists results best-effort. Implemented by store.Store.
type Archiver interface {
	ArchiveMarketStats(ctx context.Context, stats schemas.MarketStats) error
	ArchiveProperty(ctx context.Context, rec schemas.PropertyRecord) error
}

// Aggregator wires the providers together behind the inbound contract.
type Aggregator struct {
	stats     StatsFetcher
	props     PropertyExtractor
	narrative NarrativeGenerator
	archive   Archiver
	logger    *zap.Logger
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithNarrative attaches the optional commentary collaborator.
func WithNarrative(n NarrativeGenerator) Option {
	return func(a *Aggregator) { a.narrative = n }
}

// WithArchive attaches the optional result archive.
func WithArchive(ar Archiver) Option {
	return func(a *Aggregator) { a.archive = ar }
}

// NewAggregator builds the service facade.
func NewAggregator(stats StatsFetcher, props PropertyExtractor, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		stats:  stats,
		props:  props,
		logger: logger.Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetMarketStats fetches, annotates and archives the market snapshot for a
// suburb. Narrative and archive failures never fail the request.
func (a *Aggregator) GetMarketStats(ctx context.Context, suburb, state, postcode string) (schemas.MarketStats, error) {
	loc := schemas.Location{Suburb: suburb, State: state, Postcode: postcode}

	stats, err := a.stats.FetchStats(ctx, loc)
	if err != nil {
		return schemas.MarketStats{}, err
	}

	if a.narrative != nil {
		commentary, err := a.narrative.MarketCommentary(ctx, stats)
		if err != nil {
			a.logger.Warn("Narrative generation failed, continuing without commentary", zap.Error(err))
		} else {
			stats.Commentary = commentary
		}
	}

	if a.archive != nil {
		if err := a.archive.ArchiveMarketStats(ctx, stats); err != nil {
			a.logger.Warn("Failed to archive market stats", zap.Error(err))
		}
	}

	return stats, nil
}

// GetProperty extracts the full record for one address.
func (a *Aggregator) GetProperty(ctx context.Context, address string) (schemas.PropertyRecord, error) {
	rec, err := a.props.Property(ctx, address)
	if err != nil {
		return schemas.PropertyRecord{}, err
	}

	if a.archive != nil {
		if err := a.archive.ArchiveProperty(ctx, rec); err != nil {
			a.logger.Warn("Failed to archive property record", zap.Error(err))
		}
	}

	return rec, nil
}

// GetComparables looks up a batch of addresses. Per-item failures are
// embedded in the results; the operation itself never errors.
func (a *Aggregator) GetComparables(ctx context.Context, addresses []string) []schemas.ComparableRecord {
	return a.props.Comparables(ctx, addresses)
}
