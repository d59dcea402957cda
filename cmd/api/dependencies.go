package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/handler"
	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/pkg/cache"
	"github.com/FACorreiaa/sales-insights/pkg/config"
	"github.com/FACorreiaa/sales-insights/pkg/cron"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
	"github.com/FACorreiaa/sales-insights/pkg/scratch"
	"github.com/FACorreiaa/sales-insights/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Stores
	FileStorage  storage.Storage
	ResultCache  *cache.LRU
	Scratch      *scratch.Store
	SessionStore sessions.Store
	RateLimiter  *handler.RateLimiter

	// Services
	AnalysisService *service.AnalysisService
	Analyzer        service.Analyzer
	Scheduler       *cron.Scheduler

	// Handlers
	AnalysisHandler *handler.AnalysisHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	// Initialize stores
	if err := deps.initStores(); err != nil {
		return nil, fmt.Errorf("failed to init stores: %w", err)
	}

	// Initialize services
	deps.initServices()

	// Initialize handlers
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initStores initializes upload storage, result cache, scratch area and sessions
func (d *Dependencies) initStores() error {
	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: d.Config.Storage.UploadDir,
	})
	if err != nil {
		return err
	}
	d.FileStorage = fileStorage

	d.ResultCache = cache.New(d.Config.Cache.Size, d.Config.Cache.TTL)
	d.Scratch = scratch.New(d.Config.Scratch.TTL)

	cookieStore := sessions.NewCookieStore([]byte(d.Config.Server.SessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode
	d.SessionStore = cookieStore

	d.RateLimiter = handler.NewRateLimiter(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst)

	d.Logger.Info("stores initialized",
		slog.String("upload_dir", d.Config.Storage.UploadDir),
		slog.Int("cache_size", d.Config.Cache.Size),
	)
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.AnalysisService = service.NewAnalysisService(d.Metrics, d.Logger).
		WithSample(d.Config.Analysis.SampleRows, d.Config.Analysis.SampleSeed)

	// Cached analyzer so repeated dashboard views skip recomputation
	d.Analyzer = service.NewCachedService(d.AnalysisService, d.ResultCache, d.Metrics, d.Logger)

	// Expired scratch sessions and idle rate limiters are dropped on the
	// configured schedule; the result cache expires entries on its own
	d.Scheduler = cron.NewScheduler(d.Config.Scratch.PurgeSchedule, d.Logger)
	d.Scheduler.Register("scratch", d.Scratch)
	d.Scheduler.Register("rate_limiter", d.RateLimiter)
}

// initHandlers initializes all HTTP handlers
func (d *Dependencies) initHandlers() {
	d.AnalysisHandler = handler.NewAnalysisHandler(
		d.Analyzer,
		d.FileStorage,
		d.Scratch,
		d.SessionStore,
		handler.Defaults{
			K:          d.Config.Analysis.DefaultK,
			Components: d.Config.Analysis.DefaultComponents,
		},
		d.Config.Server.MaxUploadBytes,
		d.Logger,
	)
}
