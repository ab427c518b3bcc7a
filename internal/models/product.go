package models

import (
	"priceboard/internal/numeric"
	"priceboard/internal/schema"
)

// MonthlyObservation is one (units sold, price) pair bound to a calendar
// month of the export.
type MonthlyObservation struct {
	Period schema.Period `json:"period"`
	Units  numeric.Value `json:"units_sold"`
	Price  numeric.Value `json:"price"`
}

// Observations is a record's monthly series in the fixed period order.
type Observations []MonthlyObservation

// FirstPrice returns the earliest non-missing price in the series, or
// missing when no period has a price.
func (o Observations) FirstPrice() numeric.Value {
	for _, m := range o {
		if m.Price.Valid {
			return m.Price
		}
	}
	return numeric.None
}

// LastPrice returns the latest non-missing price in the series, or
// missing when no period has a price.
func (o Observations) LastPrice() numeric.Value {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Price.Valid {
			return o[i].Price
		}
	}
	return numeric.None
}

// ProductRecord is one SKU row of the export after normalization. The
// four derived price fields are always recomputed from the observation
// series; the export's own precomputed equivalents are treated as stale
// and never read.
type ProductRecord struct {
	SKU         string `json:"sku"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Supplier    string `json:"supplier,omitempty"`

	PurchasePrice     numeric.Value `json:"purchase_price"`
	AvgSalePrice      numeric.Value `json:"average_sale_price"`
	TotalUnitsSold    numeric.Value `json:"total_units_sold"`
	TotalPurchaseCost numeric.Value `json:"total_purchase_cost"`
	TotalRevenue      numeric.Value `json:"total_sales_revenue"`

	Observations Observations `json:"observations"`

	FirstPeriodPrice numeric.Value `json:"first_period_price"`
	LastPeriodPrice  numeric.Value `json:"last_period_price"`
	PriceChangeAbs   numeric.Value `json:"price_change_absolute"`
	PriceChangePct   numeric.Value `json:"price_change_percent"`
}

// GroupAggregate summarizes price movement for one subcategory or
// supplier. Count measures group membership; records whose metrics are
// missing still count.
type GroupAggregate struct {
	Key           string        `json:"key"`
	MeanChangePct numeric.Value `json:"mean_change_pct"`
	MaxGainAbs    numeric.Value `json:"max_gain_abs"`
	MinLossAbs    numeric.Value `json:"min_loss_abs"`
	Count         int           `json:"item_count"`
}

// TrendsOverview is the aggregate list plus the dashboard KPIs derived
// from it.
type TrendsOverview struct {
	Groups        []GroupAggregate `json:"groups"`
	AvgMeanChange numeric.Value    `json:"avg_mean_change_pct"`
	MaxGainAbs    numeric.Value    `json:"max_gain_abs"`
	MinLossAbs    numeric.Value    `json:"min_loss_abs"`
}

// RevenueProjection is the what-if for one qualifying group under a
// uniform price increase. Purely derived; carries no state of its own.
type RevenueProjection struct {
	Key            string        `json:"key"`
	MeanChangePct  numeric.Value `json:"mean_change_pct"`
	ItemCount      int           `json:"item_count"`
	AvgPriceBefore numeric.Value `json:"avg_price_before"`
	AvgPriceAfter  numeric.Value `json:"avg_price_after"`
	RevenueBefore  float64       `json:"revenue_before"`
	RevenueAfter   float64       `json:"revenue_after"`
	RevenueGain    float64       `json:"revenue_gain"`
}

// CandidateReport lists groups with stagnant or declining prices, ranked
// descending by projected revenue gain. The ranking is contractual: it
// drives which groups are highlighted as pricing priorities.
type CandidateReport struct {
	GrowthFactor float64             `json:"growth_factor"`
	Groups       []RevenueProjection `json:"groups"`
	TotalGain    float64             `json:"total_gain"`
}

// SummaryRow is one row of a pre-aggregated summary export.
type SummaryRow struct {
	Label  string                   `json:"label"`
	Values map[string]numeric.Value `json:"values"`
}

// SummaryTable is a loaded summary export (subcategory or supplier
// variant), rows sorted descending by the configured profit column.
type SummaryTable struct {
	GroupColumn string       `json:"group_column"`
	Columns     []string     `json:"columns"`
	Rows        []SummaryRow `json:"rows"`
}
