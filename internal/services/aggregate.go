package services

import (
	"slices"
	"strings"

	"priceboard/internal/models"
	"priceboard/internal/numeric"
)

// KeyFunc extracts the grouping key from a record. An empty string means
// the key is missing and the record is excluded from grouping entirely.
type KeyFunc func(models.ProductRecord) string

func SubcategoryKey(r models.ProductRecord) string { return r.Subcategory }
func SupplierKey(r models.ProductRecord) string    { return r.Supplier }

// AggregateBy groups records by key and summarizes price movement per
// group. Mean ignores records whose percentage change is missing (a
// group where every value is missing gets a missing mean); count covers
// every member regardless of metric availability. Outputs are rounded to
// two decimals. Groups come back sorted by key for determinism.
func AggregateBy(records []models.ProductRecord, key KeyFunc) []models.GroupAggregate {
	type acc struct {
		sumPct float64
		numPct int
		maxAbs numeric.Value
		minAbs numeric.Value
		count  int
	}

	groups := make(map[string]*acc)
	for _, r := range records {
		k := strings.TrimSpace(key(r))
		if k == "" {
			continue
		}
		g := groups[k]
		if g == nil {
			g = &acc{}
			groups[k] = g
		}
		g.count++

		if r.PriceChangePct.Valid {
			g.sumPct += r.PriceChangePct.F
			g.numPct++
		}
		if r.PriceChangeAbs.Valid {
			if !g.maxAbs.Valid || r.PriceChangeAbs.F > g.maxAbs.F {
				g.maxAbs = r.PriceChangeAbs
			}
			if !g.minAbs.Valid || r.PriceChangeAbs.F < g.minAbs.F {
				g.minAbs = r.PriceChangeAbs
			}
		}
	}

	out := make([]models.GroupAggregate, 0, len(groups))
	for k, g := range groups {
		agg := models.GroupAggregate{
			Key:        k,
			MaxGainAbs: g.maxAbs.Round2(),
			MinLossAbs: g.minAbs.Round2(),
			Count:      g.count,
		}
		if g.numPct > 0 {
			agg.MeanChangePct = numeric.Some(numeric.Round2(g.sumPct / float64(g.numPct)))
		}
		out = append(out, agg)
	}

	slices.SortFunc(out, func(a, b models.GroupAggregate) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Overview derives the dashboard KPI row from an aggregate list: the
// mean of the group means, the best absolute gain and the worst absolute
// loss across all groups.
func Overview(groups []models.GroupAggregate) models.TrendsOverview {
	o := models.TrendsOverview{Groups: groups}

	sum := 0.0
	n := 0
	for _, g := range groups {
		if g.MeanChangePct.Valid {
			sum += g.MeanChangePct.F
			n++
		}
		if g.MaxGainAbs.Valid && (!o.MaxGainAbs.Valid || g.MaxGainAbs.F > o.MaxGainAbs.F) {
			o.MaxGainAbs = g.MaxGainAbs
		}
		if g.MinLossAbs.Valid && (!o.MinLossAbs.Valid || g.MinLossAbs.F < o.MinLossAbs.F) {
			o.MinLossAbs = g.MinLossAbs
		}
	}
	if n > 0 {
		o.AvgMeanChange = numeric.Some(numeric.Round2(sum / float64(n)))
	}
	return o
}

// SubcategoryTrends recomputes the per-subcategory aggregate view.
func (p *Pipeline) SubcategoryTrends() models.TrendsOverview {
	return Overview(AggregateBy(p.snapshot(), SubcategoryKey))
}

// SupplierTrends recomputes the per-supplier aggregate view.
func (p *Pipeline) SupplierTrends() models.TrendsOverview {
	return Overview(AggregateBy(p.snapshot(), SupplierKey))
}

// Candidates selects groups with stagnant or declining prices and
// projects their revenue under the configured uniform price increase.
// A group qualifies when its mean percentage change is present and below
// the threshold and it has more than the configured member count; a
// missing mean never qualifies. Results rank descending by projected
// gain; the ordering drives which groups get prioritized.
func (p *Pipeline) Candidates(key KeyFunc) models.CandidateReport {
	records := p.snapshot()
	g := p.cfg.GrowthFactor
	report := models.CandidateReport{
		GrowthFactor: g,
		Groups:       []models.RevenueProjection{},
	}

	for _, agg := range AggregateBy(records, key) {
		if !agg.MeanChangePct.Valid || agg.MeanChangePct.F >= p.cfg.CandidateMaxMeanPct {
			continue
		}
		if agg.Count <= p.cfg.CandidateMinItems {
			continue
		}

		proj := models.RevenueProjection{
			Key:           agg.Key,
			MeanChangePct: agg.MeanChangePct,
			ItemCount:     agg.Count,
		}

		revenueBefore := 0.0
		priceSum := 0.0
		priceN := 0
		for _, r := range records {
			if strings.TrimSpace(key(r)) != agg.Key {
				continue
			}
			revenueBefore += r.TotalRevenue.Or(0) // nulls count as zero in the sum
			if r.AvgSalePrice.Valid {
				priceSum += r.AvgSalePrice.F
				priceN++
			}
		}

		proj.RevenueBefore = revenueBefore
		proj.RevenueAfter = numeric.Round0(revenueBefore * g)
		proj.RevenueGain = proj.RevenueAfter - proj.RevenueBefore
		if priceN > 0 {
			mean := priceSum / float64(priceN)
			proj.AvgPriceBefore = numeric.Some(numeric.Round2(mean))
			proj.AvgPriceAfter = numeric.Some(numeric.Round2(mean * g))
		}

		report.TotalGain += proj.RevenueGain
		report.Groups = append(report.Groups, proj)
	}

	slices.SortFunc(report.Groups, func(a, b models.RevenueProjection) int {
		switch {
		case a.RevenueGain > b.RevenueGain:
			return -1
		case a.RevenueGain < b.RevenueGain:
			return 1
		default:
			return strings.Compare(a.Key, b.Key)
		}
	})
	return report
}

// SubcategoryCandidates is the subcategory variant of the what-if view.
func (p *Pipeline) SubcategoryCandidates() models.CandidateReport {
	return p.Candidates(SubcategoryKey)
}

// SupplierCandidates is the supplier variant of the what-if view.
func (p *Pipeline) SupplierCandidates() models.CandidateReport {
	return p.Candidates(SupplierKey)
}
