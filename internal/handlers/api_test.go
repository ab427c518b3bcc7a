package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"priceboard/internal/config"
	apperrors "priceboard/internal/errors"
	"priceboard/internal/models"
	"priceboard/internal/numeric"
	"priceboard/internal/services"
)

func createTestPipeline(t *testing.T) *services.Pipeline {
	t.Helper()

	cfg := config.PipelineConfig{
		Periods:             []string{"2024-06", "2024-07", "2024-08"},
		SupplierColumn:      true,
		CurrencySuffixes:    []string{"грн.", "грн"},
		SuffixFoldCase:      true,
		CSVDelimiter:        ",",
		ProfitColumn:        "Общая прибыль",
		CandidateMaxMeanPct: 1.0,
		CandidateMinItems:   5,
		GrowthFactor:        1.10,
	}

	pipeline, err := services.NewPipeline(cfg, slog.Default())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	pipeline.SetRecords([]models.ProductRecord{
		{
			SKU:          "F-001",
			Title:        "Oil filter",
			Category:     "Parts",
			Subcategory:  "Filters",
			Supplier:     "AutoParts Ltd",
			AvgSalePrice: numeric.Some(110),
			TotalRevenue: numeric.Some(1540.50),
			Observations: models.Observations{
				{Period: "2024-06", Units: numeric.Some(3), Price: numeric.Some(100)},
				{Period: "2024-07", Units: numeric.Some(2), Price: numeric.Some(110)},
				{Period: "2024-08", Units: numeric.Some(4), Price: numeric.Some(121)},
			},
		},
		{
			SKU:          "O-001",
			Title:        "Motor oil 5W-30",
			Category:     "Fluids",
			Subcategory:  "Oils",
			Supplier:     "Lubro",
			AvgSalePrice: numeric.Some(399),
			TotalRevenue: numeric.Some(2200),
			Observations: models.Observations{
				{Period: "2024-06", Units: numeric.Some(5), Price: numeric.Some(400)},
				{Period: "2024-07"},
				{Period: "2024-08", Units: numeric.Some(3), Price: numeric.Some(398)},
			},
		},
	})
	return pipeline
}

// writeTempCSV creates a file the summary loaders can read.
func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestNewAPIHandlers(t *testing.T) {
	pipeline := createTestPipeline(t)
	logger := slog.Default()
	handlers := NewAPIHandlers(pipeline, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}

	if handlers.pipeline != pipeline {
		t.Error("NewAPIHandlers() should set pipeline field")
	}
}

func TestAPIHandlers_HandleProducts(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()

	handlers.HandleProducts(w, req)

	// Check status code
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check headers
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
	}

	// Check JSON response structure
	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 products in data, got %v", response["data"])
	}
}

func TestAPIHandlers_HandleProducts_SubcategoryFilter(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/products?subcategory=Oils", nil)
	w := httptest.NewRecorder()

	handlers.HandleProducts(w, req)

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("expected 1 product for Oils, got %v", response["data"])
	}

	item := data[0].(map[string]interface{})
	if sku := item["sku"]; sku != "O-001" {
		t.Errorf("expected sku O-001, got %v", sku)
	}
}

func TestAPIHandlers_HandleSubcategories(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/subcategories", nil)
	w := httptest.NewRecorder()

	handlers.HandleSubcategories(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].([]interface{})
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 subcategories, got %v", response["data"])
	}

	// Sorted alphabetically
	if data[0] != "Filters" || data[1] != "Oils" {
		t.Errorf("expected [Filters Oils], got %v", data)
	}
}

func TestAPIHandlers_HandleSubcategoryTrends(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/subcategory-trends", nil)
	w := httptest.NewRecorder()

	handlers.HandleSubcategoryTrends(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected trends object in response")
	}

	groups, ok := data["groups"].([]interface{})
	if !ok || len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %v", data["groups"])
	}
}

func TestAPIHandlers_HandleSubcategoryCandidates(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/subcategory-candidates", nil)
	w := httptest.NewRecorder()

	handlers.HandleSubcategoryCandidates(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected candidate report in response")
	}

	if gf, ok := data["growth_factor"].(float64); !ok || gf != 1.10 {
		t.Errorf("expected growth_factor 1.10, got %v", data["growth_factor"])
	}
}

func TestAPIHandlers_HandleSubcategorySummary(t *testing.T) {
	pipeline := createTestPipeline(t)
	handlers := NewAPIHandlers(pipeline, slog.Default())

	path := writeTempCSV(t, "subcategory_summary.csv",
		"Подкатегория,Общая прибыль,Частка\n"+
			"Filters,\"3 500,50\",\"45,5%\"\n"+
			"Oils,4100,\"54,5%\"\n")
	if err := pipeline.LoadSubcategorySummary(path); err != nil {
		t.Fatalf("failed to load summary: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/subcategory-summary", nil)
	w := httptest.NewRecorder()

	handlers.HandleSubcategorySummary(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected summary table in response")
	}

	rows, ok := data["rows"].([]interface{})
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 summary rows, got %v", data["rows"])
	}

	// Sorted descending by profit: Oils (4100) before Filters (3500.50)
	first := rows[0].(map[string]interface{})
	if label := first["label"]; label != "Oils" {
		t.Errorf("expected first row Oils, got %v", label)
	}
}

func TestAPIHandlers_HandleSubcategorySummary_MissingColumn(t *testing.T) {
	pipeline := createTestPipeline(t)
	handlers := NewAPIHandlers(pipeline, slog.Default())

	path := writeTempCSV(t, "subcategory_summary.csv",
		"Подкатегория,Выручка\nFilters,3500\n")
	if err := pipeline.LoadSubcategorySummary(path); err == nil {
		t.Fatal("expected load error for missing profit column")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/subcategory-summary", nil)
	w := httptest.NewRecorder()

	handlers.HandleSubcategorySummary(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || success {
		t.Error("expected success=false in response")
	}

	errData, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if code := errData["code"]; code != string(apperrors.CodeMissingColumn) {
		t.Errorf("expected code %s, got %v", apperrors.CodeMissingColumn, code)
	}
	if details := errData["details"]; details != "Общая прибыль" {
		t.Errorf("expected details to name the absent column, got %v", details)
	}
}

func TestAPIHandlers_HandleSupplierSummary_NotLoaded(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/api/supplier-summary", nil)
	w := httptest.NewRecorder()

	handlers.HandleSupplierSummary(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	// Check status code
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	// Check content type
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	if data, ok := response["data"].(map[string]interface{}); !ok {
		t.Error("expected health data in response")
	} else {
		if status, ok := data["status"].(string); !ok || status != "healthy" {
			t.Errorf("expected status 'healthy', got %q", status)
		}

		if timestamp, ok := data["timestamp"].(string); !ok || timestamp == "" {
			t.Error("expected non-empty timestamp")
		} else {
			if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
				t.Errorf("invalid timestamp format: %v", err)
			}
		}
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()

	handlers.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected stats object in response")
	}

	if count, ok := data["record_count"].(float64); !ok || count != 2 {
		t.Errorf("expected record_count 2, got %v", data["record_count"])
	}
}

// Test that handlers set correct headers consistently
func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	apiEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"subcategories", handlers.HandleSubcategories},
		{"products", handlers.HandleProducts},
		{"subcategory-trends", handlers.HandleSubcategoryTrends},
		{"supplier-trends", handlers.HandleSupplierTrends},
		{"subcategory-candidates", handlers.HandleSubcategoryCandidates},
		{"supplier-candidates", handlers.HandleSupplierCandidates},
	}

	for _, endpoint := range apiEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			endpoint.handler(w, req)

			// All API endpoints should have consistent headers
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}

			// Should return valid JSON with success wrapper
			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Errorf("response should be valid JSON: %v", err)
			}

			if success, ok := response["success"].(bool); !ok || !success {
				t.Error("expected success=true in response")
			}
		})
	}
}

// Test that health endpoint doesn't set cache headers
func TestAPIHandlers_HealthNoCaching(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handlers.HandleHealth(w, req)

	// Health endpoint should NOT have cache-control header
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	// But should have content-type
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
}

// Test response body format validation
func TestAPIHandlers_ResponseFormat(t *testing.T) {
	handlers := NewAPIHandlers(createTestPipeline(t), slog.Default())

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"products", handlers.HandleProducts},
		{"subcategory-trends", handlers.HandleSubcategoryTrends},
		{"supplier-trends", handlers.HandleSupplierTrends},
		{"subcategory-candidates", handlers.HandleSubcategoryCandidates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}

			body := w.Body.String()

			// Should be valid JSON object (success wrapper)
			if !strings.HasPrefix(body, "{") || !strings.HasSuffix(strings.TrimSpace(body), "}") {
				t.Errorf("expected JSON object response, got: %s", body)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(strings.NewReader(body)).Decode(&response); err != nil {
				t.Errorf("should be valid JSON: %v", err)
			}

			if success, ok := response["success"].(bool); !ok || !success {
				t.Error("expected success=true in response")
			}

			if _, ok := response["data"]; !ok {
				t.Error("expected data field in response")
			}
		})
	}
}
