package ui

import (
	"context"
	"net/http"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/cache"
	"cprfeed/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ReportService is the part of report.Service the HTTP surface uses
type ReportService interface {
	CountyData(ctx context.Context, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) (*domainReport.ExtractionResult, error)
	DownloadLinks(ctx context.Context) ([]report.DownloadLink, error)
	CacheStats() cache.Stats
}

// App serves the report endpoints
type App struct {
	router  *chi.Mux
	service ReportService
	logger  *internal.Logger
}

// NewApp creates the HTTP application around service
func NewApp(service ReportService, logger *internal.Logger) *App {
	app := &App{
		router:  chi.NewRouter(),
		service: service,
		logger:  logger.WithComponent("HTTP"),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/denver-transmission-categories", a.handleDenverTransmissionCategories)
	a.router.Get("/county-data", a.handleCountyData)
	a.router.Get("/cache-stats", a.handleCacheStats)
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.router
}
