// Package schema fixes the column layout of the product export. The file
// carries its own header row, but the header is unreliable and is ignored:
// positions are derived from the configured period list instead.
package schema

import (
	"fmt"
)

// Period identifies one calendar month in the export, e.g. "2024-06".
// Ordering of the configured period list is significant: "first" and
// "last" observations are defined by it, not by data recency.
type Period string

// Column offsets relative to the start of a row. A row is laid out as:
//
//	SKU, [supplier], title, category, subcategory,
//	purchase price, average sale price,
//	(units, price) per period,
//	total units, total purchase cost, total revenue,
//	presentation-only leftovers (ignored).
type Schema struct {
	periods     []Period
	hasSupplier bool
	base        int
}

func New(periods []string, withSupplier bool) (*Schema, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("schema: period list is empty")
	}
	seen := make(map[string]struct{}, len(periods))
	ps := make([]Period, 0, len(periods))
	for _, p := range periods {
		if p == "" {
			return nil, fmt.Errorf("schema: empty period identifier")
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("schema: duplicate period %q", p)
		}
		seen[p] = struct{}{}
		ps = append(ps, Period(p))
	}

	base := 6
	if withSupplier {
		base = 7
	}
	return &Schema{periods: ps, hasSupplier: withSupplier, base: base}, nil
}

func (s *Schema) Periods() []Period { return s.periods }
func (s *Schema) PeriodCount() int  { return len(s.periods) }

func (s *Schema) SKU() int { return 0 }

// Supplier reports the supplier column offset; ok is false when the
// export has no supplier column.
func (s *Schema) Supplier() (idx int, ok bool) {
	if !s.hasSupplier {
		return 0, false
	}
	return 1, true
}

func (s *Schema) Title() int {
	if s.hasSupplier {
		return 2
	}
	return 1
}

func (s *Schema) Category() int      { return s.Title() + 1 }
func (s *Schema) Subcategory() int   { return s.Title() + 2 }
func (s *Schema) PurchasePrice() int { return s.Title() + 3 }
func (s *Schema) AvgSalePrice() int  { return s.Title() + 4 }

// Units returns the units-sold column for the i-th period.
func (s *Schema) Units(i int) int { return s.base + 2*i }

// Price returns the price column for the i-th period.
func (s *Schema) Price(i int) int { return s.base + 2*i + 1 }

func (s *Schema) TotalUnits() int        { return s.base + 2*len(s.periods) }
func (s *Schema) TotalPurchaseCost() int { return s.TotalUnits() + 1 }
func (s *Schema) TotalRevenue() int      { return s.TotalUnits() + 2 }

// MinColumns is the row width up to and including the last column the
// pipeline reads. Anything beyond it is presentation-only and ignored.
func (s *Schema) MinColumns() int { return s.TotalRevenue() + 1 }

func (s *Schema) UnitsColumn(p Period) string { return string(p) + "_units" }
func (s *Schema) PriceColumn(p Period) string { return string(p) + "_price" }

// Columns lists the generated column names the pipeline reads, in row
// order. Useful for logging and diagnostics.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, s.MinColumns())
	cols = append(cols, "sku")
	if s.hasSupplier {
		cols = append(cols, "supplier")
	}
	cols = append(cols, "title", "category", "subcategory", "purchase_price", "average_sale_price")
	for _, p := range s.periods {
		cols = append(cols, s.UnitsColumn(p), s.PriceColumn(p))
	}
	cols = append(cols, "total_units_sold", "total_purchase_cost", "total_sales_revenue")
	return cols
}
