package editor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/markdown"
	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/article"
	"github.com/todaysafrica/newsroom/internal/modules/file"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const maxSaveWait = 30 * time.Second

// Articles is what the editor needs from the article service.
type Articles interface {
	Get(ctx context.Context, user models.User, id int64) (*article.View, error)
	Save(ctx context.Context, user models.User, in article.Input) (*article.SaveResult, error)
}

type Handler struct {
	registry     *Registry
	articles     Articles
	limits       media.Limits
	mediaBaseURL string
	log          *zap.Logger
}

func NewHandler(registry *Registry, articles Articles, limits media.Limits, mediaBaseURL string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		registry:     registry,
		articles:     articles,
		limits:       limits,
		mediaBaseURL: mediaBaseURL,
		log:          log,
	}
}

// RegisterRoutes mounts editor routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/editor")
	g.POST("/serialize", h.serialize)
	g.POST("/deserialize", h.deserialize)

	s := g.Group("/sessions")
	s.POST("", h.open)
	s.GET("/:id", h.get)
	s.DELETE("/:id", h.closeSession)
	s.PUT("/:id/document", h.setDocument)
	s.POST("/:id/markdown", h.importMarkdown)
	s.POST("/:id/images", h.insertImage)
	s.GET("/:id/previews/:ref", h.preview)
	s.GET("/:id/uploads/:ref", h.uploadStatus)
	s.POST("/:id/save", h.save)
}

type uploadView struct {
	media.Upload
	Error string `json:"error,omitempty"`
}

type sessionView struct {
	ID        string       `json:"id"`
	ArticleID int64        `json:"articleId,omitempty"`
	Markup    string       `json:"markup"`
	Uploads   []uploadView `json:"uploads"`
	Pending   []string     `json:"pending"`
}

func toUploadView(up media.Upload) uploadView {
	v := uploadView{Upload: up}
	if up.Err != nil {
		v.Error = uploadMessage(up.Err)
	}
	return v
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "Le fichier dépasse la taille maximale autorisée"
	case errors.Is(err, media.ErrUnsupportedType):
		return "Format de fichier non pris en charge"
	default:
		return "L'envoi du fichier a échoué, réessayez"
	}
}

func viewOf(s *Session) sessionView {
	ups := s.Resolver.Uploads()
	views := make([]uploadView, len(ups))
	for i, up := range ups {
		views[i] = toUploadView(up)
	}
	pending := s.Resolver.Pending()
	if pending == nil {
		pending = []string{}
	}
	return sessionView{
		ID:        s.ID,
		ArticleID: s.ArticleID(),
		Markup:    s.Doc.Markup(),
		Uploads:   views,
		Pending:   pending,
	}
}

func respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrNotOwner):
		response.NotFoundMsg(c, "Session d'édition introuvable ou expirée")
	case errors.Is(err, media.ErrClosed):
		response.Error(c, http.StatusGone, "La session d'édition est fermée")
	default:
		article.Respond(c, err)
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

func (h *Handler) session(c *gin.Context) (*Session, models.User, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, user, false
	}
	s, err := h.registry.Get(c.Param("id"), user.ID)
	if err != nil {
		respond(c, err)
		return nil, user, false
	}
	return s, user, true
}

type openRequest struct {
	ArticleID int64  `json:"articleId"`
	Markup    string `json:"markup"`
}

// open POST /editor/sessions
func (h *Handler) open(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req openRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Corps de requête invalide")
			return
		}
	}
	markup := req.Markup
	if req.ArticleID > 0 {
		v, err := h.articles.Get(c.Request.Context(), user, req.ArticleID)
		if err != nil {
			respond(c, err)
			return
		}
		if !v.Editable {
			respond(c, article.ErrNotEditable)
			return
		}
		markup = v.Markup
	}
	s := h.registry.Open(user.ID, req.ArticleID, markup)
	response.Created(c, viewOf(s))
}

// get GET /editor/sessions/:id
func (h *Handler) get(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	response.OK(c, viewOf(s))
}

// closeSession DELETE /editor/sessions/:id
func (h *Handler) closeSession(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.registry.Close(c.Param("id"), user.ID); err != nil {
		respond(c, err)
		return
	}
	response.NoContent(c)
}

type documentRequest struct {
	Markup string `json:"markup"`
}

// setDocument PUT /editor/sessions/:id/document
func (h *Handler) setDocument(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	if err := s.Resolver.Replace(req.Markup); err != nil {
		response.UnprocessableEntity(c, "Le contenu n'a pas pu être analysé")
		return
	}
	response.OK(c, viewOf(s))
}

type markdownRequest struct {
	Markdown string `json:"markdown"`
	Replace  bool   `json:"replace"`
}

// importMarkdown POST /editor/sessions/:id/markdown
func (h *Handler) importMarkdown(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	var req markdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	markup, err := markdown.ToMarkup(req.Markdown)
	if err != nil {
		response.UnprocessableEntity(c, "Le texte Markdown n'a pas pu être converti")
		return
	}
	if req.Replace {
		err = s.Resolver.Replace(markup)
	} else {
		err = s.Resolver.AppendMarkup(markup)
	}
	if err != nil {
		response.UnprocessableEntity(c, "Le contenu n'a pas pu être analysé")
		return
	}
	response.OK(c, viewOf(s))
}

// insertImage POST /editor/sessions/:id/images
func (h *Handler) insertImage(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	f, err := file.ReadForm(c, h.limits)
	if err != nil {
		respond(c, err)
		return
	}
	ref, err := s.Resolver.Insert(c.Request.Context(), f, c.PostForm("alt"))
	if err != nil {
		respond(c, err)
		return
	}
	response.Accepted(c, gin.H{"ref": ref, "session": viewOf(s)})
}

// preview GET /editor/sessions/:id/previews/:ref
func (h *Handler) preview(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	data, contentType, found := s.Resolver.Preview(c.Param("ref"))
	if !found {
		response.NotFoundMsg(c, "Aperçu indisponible")
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, contentType, data)
}

// uploadStatus GET /editor/sessions/:id/uploads/:ref
func (h *Handler) uploadStatus(c *gin.Context) {
	s, _, ok := h.session(c)
	if !ok {
		return
	}
	up, err := s.Resolver.Status(c.Param("ref"))
	if err != nil {
		respond(c, err)
		return
	}
	response.OK(c, toUploadView(up))
}

type saveRequest struct {
	article.Input
	DropUnresolved bool `json:"dropUnresolved"`
	// Wait is how long to wait for pending uploads, as a duration string.
	Wait string `json:"wait"`
}

// save POST /editor/sessions/:id/save
func (h *Handler) save(c *gin.Context) {
	s, user, ok := h.session(c)
	if !ok {
		return
	}
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	if !s.saving.TryLock() {
		response.Conflict(c, "Un enregistrement est déjà en cours")
		return
	}
	defer s.saving.Unlock()

	if req.Wait != "" {
		d, err := time.ParseDuration(req.Wait)
		if err != nil || d < 0 {
			response.BadRequest(c, "Durée d'attente invalide")
			return
		}
		if d > maxSaveWait {
			d = maxSaveWait
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		_ = s.Resolver.Wait(ctx)
		cancel()
	}

	if pending := s.Resolver.Pending(); len(pending) > 0 && !req.DropUnresolved {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"ok":      0,
			"code":    http.StatusConflict,
			"message": "Des images sont encore en cours d'envoi",
			"pending": pending,
		})
		return
	}
	policy := codec.RejectUnresolved
	if req.DropUnresolved {
		policy = codec.DropUnresolved
	}

	snapshot := s.Doc.Markup()
	blocks, err := codec.Serialize(snapshot, codec.WithUnresolvedPolicy(policy))
	if err != nil {
		respond(c, err)
		return
	}

	in := req.Input
	in.Blocks = blocks
	in.Markup = ""
	in.ID = s.ArticleID()
	result, err := h.articles.Save(c.Request.Context(), user, in)
	if err != nil {
		respond(c, err)
		return
	}

	s.setArticleID(result.Article.ID)
	// Edits made while the backend call was in flight win over the
	// canonical markup.
	if len(s.Resolver.Pending()) == 0 {
		_ = s.Doc.Update(func(cur string) (string, error) {
			if cur != snapshot {
				return cur, nil
			}
			return result.Markup, nil
		})
	}
	h.log.Info("editor saved",
		zap.String("session", s.ID),
		zap.Int64("article_id", result.Article.ID),
		zap.Int("blocks", len(blocks)),
		zap.Bool("submitted", result.Submitted))
	response.OK(c, gin.H{"result": result, "session": viewOf(s)})
}

type serializeRequest struct {
	Markup         string `json:"markup"`
	DropUnresolved bool   `json:"dropUnresolved"`
}

// serialize POST /editor/serialize
func (h *Handler) serialize(c *gin.Context) {
	var req serializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	policy := codec.RejectUnresolved
	if req.DropUnresolved {
		policy = codec.DropUnresolved
	}
	blocks, err := codec.Serialize(req.Markup, codec.WithUnresolvedPolicy(policy))
	if err != nil {
		respond(c, err)
		return
	}
	response.OK(c, blocks)
}

type deserializeRequest struct {
	Blocks []models.ContentBlock `json:"blocsContenu"`
}

// deserialize POST /editor/deserialize
func (h *Handler) deserialize(c *gin.Context) {
	var req deserializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Corps de requête invalide")
		return
	}
	response.OK(c, gin.H{"markup": codec.Deserialize(req.Blocks, codec.WithMediaBaseURL(h.mediaBaseURL))})
}
