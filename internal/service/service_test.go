package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

type fakeStats struct {
	stats schemas.MarketStats
	err   error
	calls int
}

func (f *fakeStats) FetchStats(ctx context.Context, loc schemas.Location) (schemas.MarketStats, error) {
	f.calls++
	if f.err != nil {
		return schemas.MarketStats{}, f.err
	}
	out := f.stats
	out.Suburb = loc.Suburb
	return out, nil
}

type fakeProps struct {
	rec     schemas.PropertyRecord
	recErr  error
	comps   []schemas.ComparableRecord
	lastCtx context.Context
}

func (f *fakeProps) Property(ctx context.Context, address string) (schemas.PropertyRecord, error) {
	f.lastCtx = ctx
	if f.recErr != nil {
		return schemas.PropertyRecord{}, f.recErr
	}
	out := f.rec
	out.Address = address
	return out, nil
}

func (f *fakeProps) Comparables(ctx context.Context, addresses []string) []schemas.ComparableRecord {
	return f.comps
}

type fakeNarrative struct {
	text  string
	err   error
	calls int
}

func (f *fakeNarrative) MarketCommentary(ctx context.Context, stats schemas.MarketStats) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeArchive struct {
	statsErr   error
	propErr    error
	statsCalls int
	propCalls  int
}

func (f *fakeArchive) ArchiveMarketStats(ctx context.Context, stats schemas.MarketStats) error {
	f.statsCalls++
	return f.statsErr
}

func (f *fakeArchive) ArchiveProperty(ctx context.Context, rec schemas.PropertyRecord) error {
	f.propCalls++
	return f.propErr
}

func TestGetMarketStats(t *testing.T) {
	t.Run("should attach commentary and archive on success", func(t *testing.T) {
		stats := &fakeStats{stats: schemas.MarketStats{DSRScore: "48"}}
		narrative := &fakeNarrative{text: "demand outstrips supply"}
		archive := &fakeArchive{}
		a := NewAggregator(stats, &fakeProps{}, zap.NewNop(),
			WithNarrative(narrative), WithArchive(archive))

		got, err := a.GetMarketStats(context.Background(), "Mosman", "NSW", "2088")
		require.NoError(t, err)
		assert.Equal(t, "Mosman", got.Suburb)
		assert.Equal(t, "demand outstrips supply", got.Commentary)
		assert.Equal(t, 1, archive.statsCalls)
	})

	t.Run("should propagate fetch failure", func(t *testing.T) {
		fetchErr := schemas.NewFailure(schemas.KindSessionExpired, "dsrdata", "session rejected twice", nil)
		a := NewAggregator(&fakeStats{err: fetchErr}, &fakeProps{}, zap.NewNop())

		_, err := a.GetMarketStats(context.Background(), "Mosman", "NSW", "2088")
		require.Error(t, err)
		assert.True(t, schemas.IsKind(err, schemas.KindSessionExpired))
	})

	t.Run("should degrade to empty commentary when narrative fails", func(t *testing.T) {
		narrative := &fakeNarrative{err: errors.New("model unavailable")}
		a := NewAggregator(&fakeStats{}, &fakeProps{}, zap.NewNop(), WithNarrative(narrative))

		got, err := a.GetMarketStats(context.Background(), "Mosman", "NSW", "2088")
		require.NoError(t, err)
		assert.Empty(t, got.Commentary)
		assert.Equal(t, 1, narrative.calls)
	})

	t.Run("should not fail when archiving fails", func(t *testing.T) {
		archive := &fakeArchive{statsErr: errors.New("connection refused")}
		a := NewAggregator(&fakeStats{}, &fakeProps{}, zap.NewNop(), WithArchive(archive))

		_, err := a.GetMarketStats(context.Background(), "Mosman", "NSW", "2088")
		require.NoError(t, err)
		assert.Equal(t, 1, archive.statsCalls)
	})

	t.Run("should work without optional collaborators", func(t *testing.T) {
		a := NewAggregator(&fakeStats{stats: schemas.MarketStats{DSRScore: "48"}}, &fakeProps{}, zap.NewNop())

		got, err := a.GetMarketStats(context.Background(), "Mosman", "NSW", "2088")
		require.NoError(t, err)
		assert.Equal(t, "48", got.DSRScore)
		assert.Empty(t, got.Commentary)
	})
}

func TestGetProperty(t *testing.T) {
	t.Run("should return record and archive it", func(t *testing.T) {
		archive := &fakeArchive{}
		props := &fakeProps{rec: schemas.PropertyRecord{Bedrooms: "4"}}
		a := NewAggregator(&fakeStats{}, props, zap.NewNop(), WithArchive(archive))

		got, err := a.GetProperty(context.Background(), "1 Example St")
		require.NoError(t, err)
		assert.Equal(t, "1 Example St", got.Address)
		assert.Equal(t, "4", got.Bedrooms)
		assert.Equal(t, 1, archive.propCalls)
	})

	t.Run("should propagate extraction failure without archiving", func(t *testing.T) {
		archive := &fakeArchive{}
		extractErr := schemas.NewFailure(schemas.KindExtraction, "pricefinder", "detail page never loaded", nil)
		a := NewAggregator(&fakeStats{}, &fakeProps{recErr: extractErr}, zap.NewNop(), WithArchive(archive))

		_, err := a.GetProperty(context.Background(), "1 Example St")
		require.Error(t, err)
		assert.True(t, schemas.IsKind(err, schemas.KindExtraction))
		assert.Zero(t, archive.propCalls)
	})
}

func TestGetComparables(t *testing.T) {
	comps := []schemas.ComparableRecord{
		{Address: "1 First St", Success: true},
		{Address: "2 Second St", Success: false, Error: "no search match"},
	}
	a := NewAggregator(&fakeStats{}, &fakeProps{comps: comps}, zap.NewNop())

	got := a.GetComparables(context.Background(), []string{"1 First St", "2 Second St"})
	require.Len(t, got, 2)
	assert.True(t, got[0].Success)
	assert.False(t, got[1].Success)
}
