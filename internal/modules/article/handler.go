package article

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/editor/workflow"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/apierror"
	"github.com/todaysafrica/newsroom/internal/pkg/pagination"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const actionAutoTags = "auto-tags"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts article routes. guard wraps the mutating routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	g := rg.Group("/articles")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("", guard, h.create)
	g.PUT("/:id", guard, h.update)
	g.POST("/:id/:action", guard, h.action)
}

// Respond writes the response for an article error, falling back to the
// shared mapping.
func Respond(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.Invalid(c, verr.Fields)
	case errors.Is(err, ErrEmptyContent):
		response.UnprocessableEntity(c, "L'article n'a aucun contenu, confirmez pour l'enregistrer vide")
	case errors.Is(err, ErrNotEditable):
		response.Conflict(c, "L'article est verrouillé pendant la relecture")
	case errors.Is(err, ErrNotPersisted):
		response.Conflict(c, "Enregistrez l'article avant de demander des mots-clés")
	case errors.Is(err, ErrForbiddenAction):
		response.Forbidden(c)
	default:
		apierror.Respond(c, err)
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	s := middleware.CurrentSession(c)
	if s == nil {
		response.Unauthorized(c)
		return models.User{}, false
	}
	return s.User, true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Identifiant d'article invalide")
		return 0, false
	}
	return id, true
}

// list GET /articles
func (h *Handler) list(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Paramètres de recherche invalides")
		return
	}
	page := pagination.FromContext(c)
	f := models.ArticleFilter{
		RubriqueID: q.RubriqueID,
		AuthorID:   q.AuthorID,
		Query:      strings.TrimSpace(q.Query),
		Page:       page.BackendPage(),
		Size:       page.Size,
	}
	if q.Status != "" {
		st, err := models.ParseStatus(q.Status)
		if err != nil {
			response.BadRequest(c, "Statut inconnu")
			return
		}
		f.Status = st
	}
	if q.Mine || !user.IsAdmin() {
		f.AuthorID = user.ID
	}

	result, err := h.svc.List(c.Request.Context(), user, f)
	if err != nil {
		Respond(c, err)
		return
	}
	response.Paged(c, result.Content, pagination.FromPage(*result))
}

// get GET /articles/:id
func (h *Handler) get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), user, id)
	if err != nil {
		Respond(c, err)
		return
	}
	response.OK(c, v)
}

// create POST /articles
func (h *Handler) create(c *gin.Context) {
	h.save(c, 0)
}

// update PUT /articles/:id
func (h *Handler) update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.save(c, id)
}

func (h *Handler) save(c *gin.Context, id int64) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	in.ID = id
	result, err := h.svc.Save(c.Request.Context(), user, in)
	if err != nil {
		Respond(c, err)
		return
	}
	if id == 0 {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

// action POST /articles/:id/:action
func (h *Handler) action(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if c.Param("action") == actionAutoTags {
		tags, err := h.svc.AutoTags(c.Request.Context(), id)
		if err != nil {
			Respond(c, err)
			return
		}
		response.OK(c, tags)
		return
	}

	action, err := workflow.ParseAction(c.Param("action"))
	if err != nil {
		Respond(c, err)
		return
	}
	var in TransitionInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			response.BadRequest(c, "Corps de requête invalide")
			return
		}
	}
	v, err := h.svc.Transition(c.Request.Context(), user, id, action, in)
	if err != nil {
		Respond(c, err)
		return
	}
	if v == nil {
		response.NoContent(c)
		return
	}
	response.OK(c, v)
}
