package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing().WillReturnError(nil)
	s, err := New(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return s, mockPool
}

func TestNewStore(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = New(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestArchiveMarketStats(t *testing.T) {
	s, mockPool := newMockStore(t)

	stats := schemas.MarketStats{Suburb: "Mosman", State: "NSW", Postcode: "2088", StockOnMarket: "0.95%"}
	mockPool.ExpectExec(regexp.QuoteMeta(insertMarketStatsSQL)).
		WithArgs("Mosman", "NSW", "2088", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.ArchiveMarketStats(context.Background(), stats))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestArchiveProperty(t *testing.T) {
	s, mockPool := newMockStore(t)

	rec := schemas.PropertyRecord{Address: "1 Example St", MarketStatus: "OFF Market"}
	mockPool.ExpectExec(regexp.QuoteMeta(insertPropertySQL)).
		WithArgs("1 Example St", "OFF Market", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.ArchiveProperty(context.Background(), rec))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRecentMarketStats(t *testing.T) {
	s, mockPool := newMockStore(t)
	loc := schemas.Location{Suburb: "Mosman", State: "NSW", Postcode: "2088"}

	rows := pgxmock.NewRows([]string{"payload"}).
		AddRow([]byte(`{"suburb":"Mosman","stock_on_market":"0.95%"}`)).
		AddRow([]byte(`{"suburb":"Mosman","stock_on_market":"1.10%"}`))
	mockPool.ExpectQuery(regexp.QuoteMeta(recentSnapshotsSQL)).
		WithArgs("Mosman", "NSW", "2088", 5).
		WillReturnRows(rows)

	got, err := s.RecentMarketStats(context.Background(), loc, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0.95%", got[0].StockOnMarket)
	assert.Equal(t, "1.10%", got[1].StockOnMarket)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRecentMarketStatsQueryFailure(t *testing.T) {
	s, mockPool := newMockStore(t)

	queryErr := errors.New("relation does not exist")
	mockPool.ExpectQuery(regexp.QuoteMeta(recentSnapshotsSQL)).
		WithArgs("Mosman", "NSW", "2088", 1).
		WillReturnError(queryErr)

	_, err := s.RecentMarketStats(context.Background(),
		schemas.Location{Suburb: "Mosman", State: "NSW", Postcode: "2088"}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, queryErr)
}
