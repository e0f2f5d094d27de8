package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/config"
	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/modules/editor"
	"github.com/todaysafrica/newsroom/internal/modules/file"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
	pkgcron "github.com/todaysafrica/newsroom/internal/pkg/cron"
	pkgredis "github.com/todaysafrica/newsroom/internal/pkg/redis"
	"github.com/todaysafrica/newsroom/internal/pkg/session"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	logger   *zap.Logger
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
	rc       *pkgredis.Client
	stores   stores
	be       *backend.Client
	registry *editor.Registry
}

// stores are the key-value backends shared by sessions, the read cache and
// the request guards. In-memory stores are swept by a cron job.
type stores struct {
	sessions session.Store
	cacheKV  cache.KV
	keys     middleware.KeyStore

	memSessions *session.MemoryStore
	memCache    *cache.MemoryKV
	memKeys     *middleware.MemoryStore
}

// New initializes the application: config → stores → backend → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := applyRuntimeSettings(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger}
	if err := a.openStores(); err != nil {
		return nil, err
	}

	a.be = backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, backend.WithLogger(logger.Named("backend")))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(cors.New(corsConfig(cfg)))
	a.router = router

	limits := media.Limits{MaxBytes: cfg.Upload.MaxBytes, AllowedTypes: cfg.Upload.AllowedTypes}
	a.registry = editor.NewRegistry(file.NewUploader(a.be), limits, cfg.Editor.IdleTTL, logger.Named("editor"))
	a.sched = pkgcron.New(logger.Named("cron"))

	if err := a.registerRoutes(limits); err != nil {
		a.closeStores()
		return nil, err
	}
	a.registerCronJobs()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go a.sched.Start(ctx)

	return a, nil
}

func (a *App) openStores() error {
	if a.cfg.Redis.Enable {
		rc, err := pkgredis.Connect(a.cfg.Redis.URLValue())
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.rc = rc
		a.stores = stores{
			sessions: session.NewRedisStore(rc),
			cacheKV:  cache.NewRedisKV(rc),
			keys:     rc,
		}
		a.logger.Info("using redis for sessions and cache")
		return nil
	}

	memSessions := session.NewMemoryStore()
	memCache := cache.NewMemoryKV()
	memKeys := middleware.NewMemoryStore()
	a.stores = stores{
		sessions:    memSessions,
		cacheKV:     memCache,
		keys:        memKeys,
		memSessions: memSessions,
		memCache:    memCache,
		memKeys:     memKeys,
	}
	a.logger.Warn("redis disabled, sessions and cache are kept in process memory")
	return nil
}

func (a *App) closeStores() {
	if a.rc != nil {
		_ = a.rc.Close()
	}
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes open editing sessions and
// store connections.
func (a *App) Shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	n := a.registry.CloseAll()
	if n > 0 {
		a.logger.Info("closed editing sessions", zap.Int("count", n))
	}
	a.closeStores()
}
