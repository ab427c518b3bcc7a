package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"priceboard/internal/models"
	"priceboard/internal/services"
)

const maxTableRows = 50

var productTableTemplate = template.Must(template.New("productTable").Parse(`
<div id="products-content">
<table class="modern-table">
<thead><tr><th>SKU</th><th>Title</th><th>Subcategory</th><th>First price</th><th>Last price</th><th>Change</th><th>Change %</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.SKU}}</td>
<td>{{.Title}}</td>
<td><span class="category-badge">{{.Subcategory}}</span></td>
<td>{{if .FirstPeriodPrice.Valid}}{{printf "%.2f" .FirstPeriodPrice.F}}{{else}}—{{end}}</td>
<td>{{if .LastPeriodPrice.Valid}}{{printf "%.2f" .LastPeriodPrice.F}}{{else}}—{{end}}</td>
<td>{{if .PriceChangeAbs.Valid}}{{printf "%.2f" .PriceChangeAbs.F}}{{else}}—{{end}}</td>
<td>{{if .PriceChangePct.Valid}}<strong>{{printf "%.2f%%" .PriceChangePct.F}}</strong>{{else}}—{{end}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	pipeline *services.Pipeline
	logger   *slog.Logger
}

func NewSSEHandlers(pipeline *services.Pipeline, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		pipeline: pipeline,
		logger:   logger,
	}
}

func (h *SSEHandlers) renderProductTable(records []models.ProductRecord) (string, error) {
	if len(records) > maxTableRows {
		records = records[:maxTableRows]
	}

	var buf strings.Builder
	err := productTableTemplate.Execute(&buf, records)
	return buf.String(), err
}

// HandleProducts pushes the per-product metric table, honoring the
// ?subcategory= filter of the drill-down view.
func (h *SSEHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	records := h.pipeline.Products(r.URL.Query().Get("subcategory"))
	html, err := h.renderProductTable(records)
	if err != nil {
		h.logger.Error("render product table", "error", err)
		return
	}

	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSubcategoryTrends(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"subcategoryTrends": h.pipeline.SubcategoryTrends(),
	})
	if err != nil {
		h.logger.Error("marshal subcategory trends", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="subcategory-trends-content">✅ Subcategory trends loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSupplierTrends(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"supplierTrends": h.pipeline.SupplierTrends(),
	})
	if err != nil {
		h.logger.Error("marshal supplier trends", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="supplier-trends-content">✅ Supplier trends loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSubcategoryCandidates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"candidates": h.pipeline.SubcategoryCandidates(),
	})
	if err != nil {
		h.logger.Error("marshal candidates", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="candidates-content">✅ Price increase candidates loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefreshAll pushes every view in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderProductTable(h.pipeline.Products(""))
	if err != nil {
		h.logger.Error("render product table", "error", err)
		return
	}
	sse.PatchElements(html)

	allSignals, err := json.Marshal(map[string]any{
		"subcategoryTrends": h.pipeline.SubcategoryTrends(),
		"supplierTrends":    h.pipeline.SupplierTrends(),
		"candidates":        h.pipeline.SubcategoryCandidates(),
	})
	if err != nil {
		h.logger.Error("marshal all signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
