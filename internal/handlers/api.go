package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"priceboard/internal/errors"
	"priceboard/internal/observability"
	"priceboard/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	pipeline *services.Pipeline
	logger   *slog.Logger
}

func NewAPIHandlers(pipeline *services.Pipeline, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		pipeline: pipeline,
		logger:   logger,
	}
}

// HandleProducts serves per-product price metrics, optionally filtered
// with ?subcategory=.
func (h *APIHandlers) HandleProducts(w http.ResponseWriter, r *http.Request) {
	subcategory := r.URL.Query().Get("subcategory")
	data := h.pipeline.Products(subcategory)
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleSubcategories(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.pipeline.Subcategories(), cacheHeaders)
}

func (h *APIHandlers) HandleSubcategoryTrends(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.pipeline.SubcategoryTrends(), cacheHeaders)
}

func (h *APIHandlers) HandleSupplierTrends(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.pipeline.SupplierTrends(), cacheHeaders)
}

func (h *APIHandlers) HandleSubcategoryCandidates(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.pipeline.SubcategoryCandidates(), cacheHeaders)
}

func (h *APIHandlers) HandleSupplierCandidates(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.pipeline.SupplierCandidates(), cacheHeaders)
}

// HandleSubcategorySummary serves the pre-aggregated subcategory table.
// A load failure surfaces as a named error so the dashboard disables
// only this view.
func (h *APIHandlers) HandleSubcategorySummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.pipeline.SubcategorySummary()
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleSupplierSummary(w http.ResponseWriter, r *http.Request) {
	data, err := h.pipeline.SupplierSummary()
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.pipeline.Stats())
}
