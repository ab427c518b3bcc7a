package server

import (
	"log/slog"
	"net/http"

	"priceboard/internal/handlers"
	"priceboard/internal/services"
)

type Server struct {
	mux         *http.ServeMux
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(pipeline *services.Pipeline, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		apiHandlers: handlers.NewAPIHandlers(pipeline, logger),
		sseHandlers: handlers.NewSSEHandlers(pipeline, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/subcategories", s.apiHandlers.HandleSubcategories)
	s.mux.HandleFunc("GET /api/products", s.apiHandlers.HandleProducts)
	s.mux.HandleFunc("GET /api/subcategory-trends", s.apiHandlers.HandleSubcategoryTrends)
	s.mux.HandleFunc("GET /api/supplier-trends", s.apiHandlers.HandleSupplierTrends)
	s.mux.HandleFunc("GET /api/subcategory-candidates", s.apiHandlers.HandleSubcategoryCandidates)
	s.mux.HandleFunc("GET /api/supplier-candidates", s.apiHandlers.HandleSupplierCandidates)
	s.mux.HandleFunc("GET /api/subcategory-summary", s.apiHandlers.HandleSubcategorySummary)
	s.mux.HandleFunc("GET /api/supplier-summary", s.apiHandlers.HandleSupplierSummary)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/products", s.sseHandlers.HandleProducts)
	s.mux.HandleFunc("GET /sse/subcategory-trends", s.sseHandlers.HandleSubcategoryTrends)
	s.mux.HandleFunc("GET /sse/supplier-trends", s.sseHandlers.HandleSupplierTrends)
	s.mux.HandleFunc("GET /sse/subcategory-candidates", s.sseHandlers.HandleSubcategoryCandidates)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
