package pricefinder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/manjain15/propwealth-scraper/api/schemas"
	"github.com/manjain15/propwealth-scraper/internal/browser"
)

// Comparables looks up a sequence of addresses in one authenticated browsing
// context. It never fails as a whole: the result always has one entry per
// input address, in input order, with failures embedded per item.
//
// Addresses are processed strictly sequentially. Concurrency would both trip
// the provider's rate limits and corrupt the single page's navigation state.
func (e *Extractor) Comparables(ctx context.Context, addresses []string) []schemas.ComparableRecord {
	results := make([]schemas.ComparableRecord, 0, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	pg, err := e.browser.NewPage(ctx)
	if err != nil {
		return failAll(addresses,
			schemas.NewFailure(schemas.KindAuthentication, ProviderName, "could not open browsing context", err))
	}
	defer pg.Close()

	if err := e.login(ctx, pg); err != nil {
		return failAll(addresses, err)
	}

	lookup := func(ctx context.Context, address string) (schemas.ComparableRecord, error) {
		return e.comparable(ctx, pg, address)
	}

	return runBatch(ctx, e.logger, addresses, e.pace(), lookup)
}

// runBatch is the fenced iteration: each address gets its own error
// boundary so one failure never unwinds the accumulator. Work already
// recorded stays valid even when the caller's deadline fires mid-batch.
//
// The pace is a fixed gap between the end of one lookup and the start of
// the next, regardless of how long the lookup itself took. A token bucket
// is the wrong tool here: it refills while the lookup runs, so any lookup
// slower than the pace would collapse the gap to zero.
func runBatch(
	ctx context.Context,
	logger *zap.Logger,
	addresses []string,
	pace time.Duration,
	lookup func(ctx context.Context, address string) (schemas.ComparableRecord, error),
) []schemas.ComparableRecord {
	results := make([]schemas.ComparableRecord, 0, len(addresses))

	for i, address := range addresses {
		if i > 0 {
			if err := pause(ctx, pace); err != nil {
				// Deadline hit between items; fail the remainder in place.
				for _, rest := range addresses[i:] {
					results = append(results, schemas.ComparableRecord{
						Address: rest, Success: false, Error: err.Error(),
					})
				}
				return results
			}
		}

		rec, err := lookup(ctx, address)
		if err != nil {
			logger.Warn("Comparable lookup failed, continuing batch",
				zap.String("address", address), zap.Error(err))
			results = append(results, schemas.ComparableRecord{
				Address: address, Success: false, Error: err.Error(),
			})
			continue
		}
		rec.Address = address
		rec.Success = true
		results = append(results, rec)
	}

	return results
}

// comparable runs the reduced search-and-read sequence for one address on
// the shared page: base attributes and last sale only, no tab activation.
func (e *Extractor) comparable(ctx context.Context, pg *browser.Page, address string) (schemas.ComparableRecord, error) {
	if err := e.search(ctx, pg, address); err != nil {
		return schemas.ComparableRecord{}, err
	}
	if err := pg.WaitVisible(ctx, detailRegionSel, detailTimeout); err != nil {
		return schemas.ComparableRecord{}, schemas.NewFailure(schemas.KindExtraction, ProviderName,
			"property detail region never appeared for "+address, err)
	}
	html, err := pg.HTML(ctx, 10*time.Second)
	if err != nil {
		return schemas.ComparableRecord{}, schemas.NewFailure(schemas.KindExtraction, ProviderName,
			"could not snapshot detail page", err)
	}

	var full schemas.PropertyRecord
	e.readBaseFields(&full, html)

	return schemas.ComparableRecord{
		Bedrooms:     full.Bedrooms,
		Bathrooms:    full.Bathrooms,
		Parking:      full.Parking,
		LandSize:     full.LandSize,
		PropertyType: full.PropertyType,
		SoldPrice:    full.LastSalePrice,
		SoldDate:     full.LastSaleDate,
	}, nil
}

// pause blocks for the pacing gap, aborting early if the caller's context
// is done.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Extractor) pace() time.Duration {
	if e.cfg.BatchPace > 0 {
		return e.cfg.BatchPace
	}
	return 3 * time.Second
}

func failAll(addresses []string, err error) []schemas.ComparableRecord {
	results := make([]schemas.ComparableRecord, 0, len(addresses))
	for _, address := range addresses {
		results = append(results, schemas.ComparableRecord{
			Address: address, Success: false, Error: err.Error(),
		})
	}
	return results
}
