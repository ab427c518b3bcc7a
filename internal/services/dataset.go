// Package services holds the data pipeline: loading the raw exports,
// normalizing their numeric fields, recomputing period metrics, and
// serving grouped aggregates and revenue projections. The dataset is
// immutable after load; every query is a pure function over it and may
// run concurrently without locking beyond the swap guard.
package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"priceboard/internal/config"
	"priceboard/internal/models"
	"priceboard/internal/numeric"
	"priceboard/internal/schema"
)

type Pipeline struct {
	mu     sync.RWMutex
	cfg    config.PipelineConfig
	schema *schema.Schema
	logger *slog.Logger

	records  []models.ProductRecord
	loadedAt time.Time
	skipped  int

	subcatSummary   *models.SummaryTable
	subcatErr       error
	supplierSummary *models.SummaryTable
	supplierErr     error
}

func NewPipeline(cfg config.PipelineConfig, logger *slog.Logger) (*Pipeline, error) {
	sch, err := schema.New(cfg.Periods, cfg.SupplierColumn)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, schema: sch, logger: logger}, nil
}

func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// SetRecords replaces the dataset with already-built records and
// recomputes their derived price fields. Test seam, mirrors the loader's
// post-processing.
func (p *Pipeline) SetRecords(records []models.ProductRecord) {
	for i := range records {
		computePeriodMetrics(&records[i])
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = records
	p.loadedAt = time.Now()
}

// LoadProducts reads the product table from a delimited text file or,
// when the path has a spreadsheet extension, directly from the xlsx
// export. The file's header row is skipped; positions come from the
// configured schema.
func (p *Pipeline) LoadProducts(ctx context.Context, filename string) error {
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readSpreadsheetRows(filename)
	default:
		rows, err = p.readDelimitedRows(ctx, filename)
	}
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	if len(rows) < 2 {
		return fmt.Errorf("load products: no data rows in %s", filename)
	}

	records := make([]models.ProductRecord, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] { // header is present but overridden by the schema
		rec, ok := p.parseProductRow(row)
		if !ok {
			skipped++
			continue
		}
		computePeriodMetrics(&rec)
		records = append(records, rec)
	}

	if len(records) == 0 {
		return fmt.Errorf("load products: no usable rows in %s", filename)
	}

	p.mu.Lock()
	p.records = records
	p.loadedAt = time.Now()
	p.skipped = skipped
	p.mu.Unlock()

	p.logger.Info("product table loaded",
		"filename", filename,
		"records", len(records),
		"skipped_rows", skipped,
		"periods", p.schema.PeriodCount(),
		"duration", time.Since(start),
	)
	return nil
}

func (p *Pipeline) readDelimitedRows(ctx context.Context, filename string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = p.cfg.Delimiter()
	reader.FieldsPerRecord = -1 // row widths vary; short rows read as missing
	reader.LazyQuotes = true

	var rows [][]string
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readSpreadsheetRows(filename string) ([][]string, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", filename)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// parseProductRow maps one raw row to a ProductRecord. Rows without a SKU
// are dropped; everything else degrades field by field, a bad numeric
// cell becoming missing. The export's own precomputed first/last/change
// columns are deliberately not read.
func (p *Pipeline) parseProductRow(row []string) (models.ProductRecord, bool) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	sku := cell(p.schema.SKU())
	if sku == "" {
		return models.ProductRecord{}, false
	}

	opts := p.currencyOptions()
	rec := models.ProductRecord{
		SKU:               sku,
		Title:             cell(p.schema.Title()),
		Category:          cell(p.schema.Category()),
		Subcategory:       cell(p.schema.Subcategory()),
		PurchasePrice:     numeric.Parse(cell(p.schema.PurchasePrice()), opts),
		AvgSalePrice:      numeric.Parse(cell(p.schema.AvgSalePrice()), opts),
		TotalUnitsSold:    numeric.Parse(cell(p.schema.TotalUnits()), opts),
		TotalPurchaseCost: numeric.Parse(cell(p.schema.TotalPurchaseCost()), opts),
		TotalRevenue:      numeric.Parse(cell(p.schema.TotalRevenue()), opts),
	}
	if idx, ok := p.schema.Supplier(); ok {
		rec.Supplier = cell(idx)
	}

	periods := p.schema.Periods()
	rec.Observations = make(models.Observations, 0, len(periods))
	for i, period := range periods {
		rec.Observations = append(rec.Observations, models.MonthlyObservation{
			Period: period,
			Units:  numeric.Parse(cell(p.schema.Units(i)), opts),
			Price:  numeric.Parse(cell(p.schema.Price(i)), opts),
		})
	}

	return rec, true
}

func (p *Pipeline) currencyOptions() numeric.Options {
	return numeric.Options{
		CurrencySuffixes: p.cfg.CurrencySuffixes,
		CaseInsensitive:  p.cfg.SuffixFoldCase,
	}
}

// Products returns the records, optionally filtered to one subcategory.
func (p *Pipeline) Products(subcategory string) []models.ProductRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if subcategory == "" {
		out := make([]models.ProductRecord, len(p.records))
		copy(out, p.records)
		return out
	}

	out := make([]models.ProductRecord, 0)
	for _, r := range p.records {
		if r.Subcategory == subcategory {
			out = append(out, r)
		}
	}
	return out
}

// Subcategories lists the distinct non-missing subcategories, sorted.
func (p *Pipeline) Subcategories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range p.records {
		if r.Subcategory != "" {
			seen[r.Subcategory] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p *Pipeline) snapshot() []models.ProductRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.records
}

// Stats reports load-time counters for the admin endpoint.
func (p *Pipeline) Stats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]any{
		"record_count":        len(p.records),
		"skipped_rows":        p.skipped,
		"loaded_at":           p.loadedAt,
		"periods":             p.schema.PeriodCount(),
		"subcategory_summary": p.subcatErr == nil && p.subcatSummary != nil,
		"supplier_summary":    p.supplierErr == nil && p.supplierSummary != nil,
	}
}
