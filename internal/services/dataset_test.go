package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Schema for testPipelineConfig: sku, supplier, title, category,
// subcategory, purchase, avg sale, 3x(units, price), total units,
// total purchase cost, total revenue, then ignored leftovers.
const productsCSV = `Артикул,Постачальник,title,category,subcategory,закупівля,середня ціна,06_шт,06_ціна,07_шт,07_ціна,08_шт,08_ціна,всього шт,закупівля всього,продажі всього,стара перша ціна,стара зміна
F-001,Acme,"Фільтр, масляний",Parts,Filters,"80,00 грн.","120,50 грн.",5,"100,00 грн.",7,"110,00 грн.",2,"121,00 грн.",14,"1 120,00 грн.","1 540,50 грн.",9999,9999
F-002,Acme,Фільтр повітряний,Parts,Filters,"60 грн","90,00",,"",3,"95,50",,,3,180,"286,50",bogus,bogus
O-001,Globex,Олива,Parts,Oils,"200,00","250,00",1,немає,2,,,,3,600,750
X-001,,Загадка,Parts,,"10","20",,,,,,,0,0,0
,,порожній рядок без артикулу,,,,,,,,,,,,,
`

func TestLoadProducts_CSV(t *testing.T) {
	path := writeTempFile(t, "products.csv", productsCSV)

	p := newTestPipeline(t)
	if err := p.LoadProducts(context.Background(), path); err != nil {
		t.Fatalf("LoadProducts() error: %v", err)
	}

	records := p.Products("")
	if len(records) != 4 {
		t.Fatalf("expected 4 records (blank-SKU row dropped), got %d", len(records))
	}

	first := records[0]
	if first.SKU != "F-001" || first.Supplier != "Acme" || first.Subcategory != "Filters" {
		t.Errorf("unexpected identity fields: %+v", first)
	}
	if first.Title != "Фільтр, масляний" {
		t.Errorf("quoted title mangled: %q", first.Title)
	}
	if !first.PurchasePrice.Valid || first.PurchasePrice.F != 80 {
		t.Errorf("purchase price = %+v, want 80", first.PurchasePrice)
	}
	if !first.TotalRevenue.Valid || first.TotalRevenue.F != 1540.50 {
		t.Errorf("total revenue = %+v, want 1540.50", first.TotalRevenue)
	}
	if len(first.Observations) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(first.Observations))
	}
	if !first.Observations[0].Price.Valid || first.Observations[0].Price.F != 100 {
		t.Errorf("first observation price = %+v, want 100", first.Observations[0].Price)
	}

	// Derived metrics recomputed, never read from the stale trailing columns.
	if !first.FirstPeriodPrice.Valid || first.FirstPeriodPrice.F != 100 {
		t.Errorf("first period price = %+v, want 100", first.FirstPeriodPrice)
	}
	if !first.LastPeriodPrice.Valid || first.LastPeriodPrice.F != 121 {
		t.Errorf("last period price = %+v, want 121", first.LastPeriodPrice)
	}
	if !first.PriceChangeAbs.Valid || first.PriceChangeAbs.F != 21 {
		t.Errorf("change abs = %+v, want 21", first.PriceChangeAbs)
	}
	if !first.PriceChangePct.Valid || first.PriceChangePct.F != 21 {
		t.Errorf("change pct = %+v, want 21", first.PriceChangePct)
	}
}

func TestLoadProducts_GapsAndShortRows(t *testing.T) {
	path := writeTempFile(t, "products.csv", productsCSV)
	p := newTestPipeline(t)
	if err := p.LoadProducts(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	records := p.Products("")

	// F-002: price only in the middle period.
	second := records[1]
	if !second.FirstPeriodPrice.Valid || second.FirstPeriodPrice.F != 95.50 {
		t.Errorf("F-002 first price = %+v, want 95.50", second.FirstPeriodPrice)
	}
	if second.FirstPeriodPrice != second.LastPeriodPrice {
		t.Error("single-period record: first and last price must match")
	}

	// O-001: "немає" and empties are missing everywhere -> metrics missing.
	third := records[2]
	if third.FirstPeriodPrice.Valid || third.PriceChangePct.Valid {
		t.Errorf("O-001 should have all-missing metrics, got %+v / %+v",
			third.FirstPeriodPrice, third.PriceChangePct)
	}

	// X-001 has no subcategory: present in records, absent from grouping.
	if got := p.Products("Filters"); len(got) != 2 {
		t.Errorf("Products(Filters) = %d records, want 2", len(got))
	}
	trends := p.SubcategoryTrends()
	for _, g := range trends.Groups {
		if g.Key == "" {
			t.Error("missing subcategory must not form a group")
		}
	}
}

func TestLoadProducts_Subcategories(t *testing.T) {
	path := writeTempFile(t, "products.csv", productsCSV)
	p := newTestPipeline(t)
	if err := p.LoadProducts(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	got := p.Subcategories()
	want := []string{"Filters", "Oils"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Subcategories() = %v, want %v", got, want)
	}
}

func TestLoadProducts_BadInputs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"header only", "a,b,c\n"},
		{"no usable rows", "h1,h2\n,,\n , ,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempFile(t, "bad.csv", tt.content)
			p := newTestPipeline(t)
			if err := p.LoadProducts(context.Background(), path); err == nil {
				t.Error("LoadProducts() should fail when no data rows are usable")
			}
		})
	}
}

func TestLoadProducts_MissingFile(t *testing.T) {
	p := newTestPipeline(t)
	err := p.LoadProducts(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "load products") {
		t.Errorf("error should be wrapped with context: %v", err)
	}
}

func TestLoadProducts_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Артикул", "Постачальник", "title", "category", "subcategory", "закупівля", "середня ціна",
			"06_шт", "06_ціна", "07_шт", "07_ціна", "08_шт", "08_ціна",
			"всього шт", "закупівля всього", "продажі всього"},
		{"F-001", "Acme", "Фільтр", "Parts", "Filters", "80,00 грн.", "120,50",
			"5", "100,00", "7", "110,00", "2", "121,00",
			"14", "1120", "1540,50"},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "products.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	p := newTestPipeline(t)
	if err := p.LoadProducts(context.Background(), path); err != nil {
		t.Fatalf("LoadProducts() from xlsx: %v", err)
	}

	records := p.Products("")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.SKU != "F-001" || !r.TotalRevenue.Valid || r.TotalRevenue.F != 1540.50 {
		t.Errorf("unexpected record from xlsx: %+v", r)
	}
	if !r.PriceChangePct.Valid || r.PriceChangePct.F != 21 {
		t.Errorf("change pct = %+v, want 21", r.PriceChangePct)
	}
}

func TestStats(t *testing.T) {
	path := writeTempFile(t, "products.csv", productsCSV)
	p := newTestPipeline(t)
	if err := p.LoadProducts(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats["record_count"] != 4 {
		t.Errorf("record_count = %v, want 4", stats["record_count"])
	}
	if stats["skipped_rows"] != 1 {
		t.Errorf("skipped_rows = %v, want 1", stats["skipped_rows"])
	}
	if stats["periods"] != 3 {
		t.Errorf("periods = %v, want 3", stats["periods"])
	}
}
