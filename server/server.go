// Package server exposes the dashboard JSON API: trends, analyses,
// market matches, source status and runtime settings, plus trigger
// endpoints for manual scans and market syncs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"trendwatch/pkg/domain"
	"trendwatch/pkg/repository"
	"trendwatch/pkg/scanner"
)

// Server represents HTTP server instance
type Server struct {
	config    ConfigProvider
	trends    TrendStore
	analyses  AnalysisStore
	markets   MarketStore
	meta      MetaStore
	settings  SettingsStore
	scanner   Scanner
	marketing IdeaGenerator
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// TrendStore reads persisted trends
type TrendStore interface {
	List(ctx context.Context, filter repository.TrendFilter) ([]*domain.Trend, error)
	Get(ctx context.Context, id int64) (*domain.Trend, error)
	Count(ctx context.Context) (int, error)
}

// AnalysisStore reads stored analyses
type AnalysisStore interface {
	GetByTrend(ctx context.Context, trendID int64) (*domain.Analysis, error)
	CountByPotential(ctx context.Context) (map[domain.MarketPotential]int, error)
}

// MarketStore reads the market mirror and matches
type MarketStore interface {
	List(ctx context.Context, limit int) ([]*domain.Market, error)
	GetMatches(ctx context.Context, trendID int64) ([]*domain.MarketMatch, error)
	Count(ctx context.Context) (int, error)
}

// MetaStore reads per-source scan bookkeeping
type MetaStore interface {
	GetAll(ctx context.Context) ([]*domain.SourceMetadata, error)
}

// SettingsStore reads and writes runtime settings
type SettingsStore interface {
	All(ctx context.Context) map[string]string
	Set(ctx context.Context, key, value string) error
}

// Scanner triggers on-demand pipeline runs
type Scanner interface {
	ScanSource(ctx context.Context, source domain.Source) (scanner.ScanResult, error)
	SyncMarkets(ctx context.Context) (int, error)
}

// IdeaGenerator produces ad copy for a trend and its matched markets
type IdeaGenerator interface {
	GenerateMarketingIdeas(ctx context.Context, trend *domain.Trend, matches []*domain.MarketMatch) (string, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
	GetScanToken() string
}

// Params bundles server dependencies. Scanner and Marketing may be nil,
// the corresponding endpoints then report unavailability.
type Params struct {
	Config    ConfigProvider
	Trends    TrendStore
	Analyses  AnalysisStore
	Markets   MarketStore
	Meta      MetaStore
	Settings  SettingsStore
	Scanner   Scanner
	Marketing IdeaGenerator
	Version   string
	Debug     bool
}

// New initializes a new server instance
func New(p Params) *Server {
	s := &Server{
		config:    p.Config,
		trends:    p.Trends,
		analyses:  p.Analyses,
		markets:   p.Markets,
		meta:      p.Meta,
		settings:  p.Settings,
		scanner:   p.Scanner,
		marketing: p.Marketing,
		version:   p.Version,
		debug:     p.Debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("trendwatch", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /trends", s.listTrendsHandler)
		r.HandleFunc("GET /trends/{id}", s.getTrendHandler)
		r.HandleFunc("GET /trends/{id}/matches", s.getMatchesHandler)
		r.HandleFunc("GET /markets", s.listMarketsHandler)
		r.HandleFunc("GET /sources", s.sourcesHandler)
		r.HandleFunc("GET /settings", s.getSettingsHandler)
		r.HandleFunc("PUT /settings/{key}", s.setSettingHandler)
		r.HandleFunc("POST /trends/{id}/marketing", s.marketingHandler)

		// trigger endpoints, guarded by the scan token when configured
		r.With(s.scanAuth).HandleFunc("POST /scan/{source}", s.scanHandler)
		r.With(s.scanAuth).HandleFunc("POST /markets/sync", s.syncMarketsHandler)
	})
}

// scanAuth requires the configured bearer token on trigger endpoints.
// An empty configured token disables the check.
func (s *Server) scanAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.config.GetScanToken()
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			renderError(w, r, fmt.Errorf("unauthorized"), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
