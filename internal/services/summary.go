package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	apperrors "priceboard/internal/errors"
	"priceboard/internal/models"
	"priceboard/internal/numeric"
)

// LoadSubcategorySummary loads the pre-aggregated subcategory table.
// A failure disables only this view; the error is kept and replayed to
// callers of SubcategorySummary.
func (p *Pipeline) LoadSubcategorySummary(filename string) error {
	table, err := p.loadSummaryTable(filename)

	p.mu.Lock()
	p.subcatSummary, p.subcatErr = table, err
	p.mu.Unlock()

	if err == nil {
		p.logger.Info("subcategory summary loaded", "filename", filename, "rows", len(table.Rows))
	}
	return err
}

// LoadSupplierSummary loads the pre-aggregated supplier table. Same
// degradation contract as the subcategory variant.
func (p *Pipeline) LoadSupplierSummary(filename string) error {
	table, err := p.loadSummaryTable(filename)

	p.mu.Lock()
	p.supplierSummary, p.supplierErr = table, err
	p.mu.Unlock()

	if err == nil {
		p.logger.Info("supplier summary loaded", "filename", filename, "rows", len(table.Rows))
	}
	return err
}

func (p *Pipeline) SubcategorySummary() (*models.SummaryTable, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.subcatErr != nil {
		return nil, p.subcatErr
	}
	if p.subcatSummary == nil {
		return nil, apperrors.ServiceUnavailable("subcategory summary not loaded")
	}
	return p.subcatSummary, nil
}

func (p *Pipeline) SupplierSummary() (*models.SummaryTable, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.supplierErr != nil {
		return nil, p.supplierErr
	}
	if p.supplierSummary == nil {
		return nil, apperrors.ServiceUnavailable("supplier summary not loaded")
	}
	return p.supplierSummary, nil
}

// loadSummaryTable reads a summary export: first column is the group
// label, the rest are numeric-as-text (comma decimals, percent signs)
// and pass through the percent-variant normalizer. Rows sort descending
// by the configured profit column; its absence is a MissingColumn error,
// not a crash.
func (p *Pipeline) loadSummaryTable(filename string) (*models.SummaryTable, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavail, "summary file unavailable")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = p.cfg.Delimiter()
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeServiceUnavail, fmt.Sprintf("read summary %s", filename))
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 || len(rows[0]) < 2 {
		return nil, apperrors.MissingColumn("grouping label")
	}

	header := rows[0]
	groupColumn := strings.TrimSpace(header[0])
	if groupColumn == "" {
		return nil, apperrors.MissingColumn("grouping label")
	}

	numericColumns := make([]string, 0, len(header)-1)
	profitFound := false
	for _, h := range header[1:] {
		name := strings.TrimSpace(h)
		numericColumns = append(numericColumns, name)
		if name == p.cfg.ProfitColumn {
			profitFound = true
		}
	}
	if !profitFound {
		return nil, apperrors.MissingColumn(p.cfg.ProfitColumn)
	}

	opts := numeric.Options{Percent: true}
	table := &models.SummaryTable{
		GroupColumn: groupColumn,
		Columns:     numericColumns,
		Rows:        make([]models.SummaryRow, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		sr := models.SummaryRow{
			Label:  strings.TrimSpace(row[0]),
			Values: make(map[string]numeric.Value, len(numericColumns)),
		}
		for i, col := range numericColumns {
			raw := ""
			if i+1 < len(row) {
				raw = row[i+1]
			}
			sr.Values[col] = numeric.Parse(raw, opts)
		}
		table.Rows = append(table.Rows, sr)
	}

	profit := p.cfg.ProfitColumn
	slices.SortStableFunc(table.Rows, func(a, b models.SummaryRow) int {
		av, bv := a.Values[profit], b.Values[profit]
		switch {
		case av.Valid && bv.Valid && av.F != bv.F:
			if av.F > bv.F {
				return -1
			}
			return 1
		case av.Valid && !bv.Valid:
			return -1 // missing profit sorts last
		case !av.Valid && bv.Valid:
			return 1
		default:
			return strings.Compare(a.Label, b.Label)
		}
	})

	return table, nil
}
