package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/article"
	"github.com/todaysafrica/newsroom/internal/modules/auth"
	"github.com/todaysafrica/newsroom/internal/modules/editor"
	"github.com/todaysafrica/newsroom/internal/modules/file"
	"github.com/todaysafrica/newsroom/internal/modules/public"
	"github.com/todaysafrica/newsroom/internal/modules/rubrique"
	"github.com/todaysafrica/newsroom/internal/modules/tagging"
	"github.com/todaysafrica/newsroom/internal/modules/tasks/crontask"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
	jwtpkg "github.com/todaysafrica/newsroom/internal/pkg/jwt"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
	"github.com/todaysafrica/newsroom/internal/pkg/session"
)

const (
	appName    = "todaysafrica-newsroom"
	appVersion = "1.0.0"

	loginAttempts = 10
	loginWindow   = time.Minute
)

func (a *App) registerRoutes(limits media.Limits) error {
	r := a.router
	cfg := a.cfg
	log := a.logger

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, "Méthode non autorisée")
	})

	appInfo := gin.H{
		"name":    appName,
		"version": appVersion,
		"env":     cfg.Env,
	}
	r.GET("/", func(c *gin.Context) { response.OK(c, appInfo) })
	r.GET("/api/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "uptime": time.Since(processStart).Truncate(time.Second).String()})
	})

	c := cache.New(a.stores.cacheKV, cfg.Cache.TTL, cache.WithLogger(log.Named("cache")))
	sessions := session.NewManager(a.stores.sessions, cfg.Session.TTL)

	tagger, err := tagging.New(cfg.Tagging, log.Named("tagging"))
	if err != nil {
		return err
	}
	articleOpts := []article.Option{
		article.WithMediaBaseURL(cfg.Backend.MediaBaseURL),
		article.WithLogger(log.Named("article")),
	}
	if tagger != nil {
		articleOpts = append(articleOpts, article.WithTagger(tagger, cfg.Tagging.MaxTags))
	}

	authMW := middleware.Auth(sessions)
	guard := middleware.Idempotence(a.stores.keys)
	loginLimit := middleware.RateLimit(a.stores.keys, loginAttempts, loginWindow, log.Named("ratelimit"))

	rubriqueSvc := rubrique.NewService(a.be, c)
	articleSvc := article.NewService(a.be, c, articleOpts...)
	authSvc := auth.NewService(a.be, sessions, jwtpkg.NewReader(cfg.JWTSecret), log.Named("auth"))
	publicSvc := public.NewService(a.be, rubriqueSvc, c, cfg.Backend.MediaBaseURL, log.Named("public"))

	api := r.Group("/api")
	auth.NewHandler(authSvc, cfg.IsProduction()).RegisterRoutes(api, loginLimit, authMW)
	public.NewHandler(publicSvc).RegisterRoutes(api)
	rubrique.NewHandler(rubriqueSvc).RegisterRoutes(api)

	dash := api.Group("", authMW)
	article.NewHandler(articleSvc).RegisterRoutes(dash, guard)
	editor.NewHandler(a.registry, articleSvc, limits, cfg.Backend.MediaBaseURL, log.Named("editor")).
		RegisterRoutes(dash)
	file.NewHandler(file.NewUploader(a.be), limits, log.Named("media")).RegisterRoutes(dash)
	crontask.NewHandler(a.sched).RegisterRoutes(dash, middleware.RequireRole(models.RoleAdmin))

	return nil
}
