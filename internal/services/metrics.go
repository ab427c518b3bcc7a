package services

import (
	"priceboard/internal/models"
	"priceboard/internal/numeric"
)

// computePeriodMetrics derives the four price-change fields from the
// observation series. This recomputation is the single source of truth:
// the export carries its own versions of these columns but they are
// treated as stale and never read.
//
// A record with no observed price in any period keeps all four fields
// missing. A zero or missing first price leaves the percentage missing;
// it is never infinity and never a fault.
func computePeriodMetrics(r *models.ProductRecord) {
	r.FirstPeriodPrice = r.Observations.FirstPrice()
	r.LastPeriodPrice = r.Observations.LastPrice()
	r.PriceChangeAbs = numeric.None
	r.PriceChangePct = numeric.None

	if !r.FirstPeriodPrice.Valid || !r.LastPeriodPrice.Valid {
		return
	}

	change := r.LastPeriodPrice.F - r.FirstPeriodPrice.F
	r.PriceChangeAbs = numeric.Some(change)

	if r.FirstPeriodPrice.F != 0 {
		// Two decimals, half away from zero.
		r.PriceChangePct = numeric.Some(numeric.Round2(change / r.FirstPeriodPrice.F * 100))
	}
}
