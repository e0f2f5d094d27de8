// Package crontask exposes the background job scheduler to administrators.
package crontask

import (
	"errors"

	"github.com/gin-gonic/gin"

	pkgcron "github.com/todaysafrica/newsroom/internal/pkg/cron"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

// Handler wraps the scheduler for HTTP access.
type Handler struct {
	sched *pkgcron.Scheduler
}

func NewHandler(sched *pkgcron.Scheduler) *Handler {
	return &Handler{sched: sched}
}

// RegisterRoutes mounts job routes. guard restricts them to administrators.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	g := rg.Group("/admin/jobs", guard...)
	g.GET("", h.list)
	g.GET("/:name", h.get)
	g.POST("/:name/run", h.run)
}

// GET /admin/jobs
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.sched.List())
}

// GET /admin/jobs/:name
func (h *Handler) get(c *gin.Context) {
	item, ok := h.sched.Get(c.Param("name"))
	if !ok {
		response.NotFoundMsg(c, "Tâche planifiée inconnue")
		return
	}
	response.OK(c, item)
}

// POST /admin/jobs/:name/run runs the job and waits for it.
func (h *Handler) run(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.Run(c.Request.Context(), name); err != nil {
		switch {
		case errors.Is(err, pkgcron.ErrJobNotFound):
			response.NotFoundMsg(c, "Tâche planifiée inconnue")
		case errors.Is(err, pkgcron.ErrJobRunning):
			response.Conflict(c, "La tâche est déjà en cours d'exécution")
		default:
			response.InternalError(c, err)
		}
		return
	}
	item, _ := h.sched.Get(name)
	response.OK(c, item)
}
