// Package public serves the reader site from published articles only.
package public

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/apierror"
	"github.com/todaysafrica/newsroom/internal/modules/article"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
	"github.com/todaysafrica/newsroom/internal/pkg/pagination"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const (
	homeLatest       = 10
	homeSectionSize  = 4
	cacheControlPage = "public, max-age=30"
)

type Backend interface {
	ListPublished(ctx context.Context, f models.ArticleFilter) (*models.Page[models.Article], error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
}

type Rubriques interface {
	Tree(ctx context.Context) ([]models.Rubrique, error)
	Find(ctx context.Context, id int64) (*models.Rubrique, error)
}

// Teaser is an article as listed on the reader site.
type Teaser struct {
	ID          int64         `json:"id"`
	Title       string        `json:"titre"`
	Description string        `json:"description"`
	RubriqueID  int64         `json:"rubriqueId"`
	Region      models.Region `json:"region,omitempty"`
	CoverURL    string        `json:"imageCouverture,omitempty"`
	PublishedAt *time.Time    `json:"datePublication,omitempty"`
}

type Section struct {
	Rubrique models.Rubrique `json:"rubrique"`
	Articles []Teaser        `json:"articles"`
}

type Home struct {
	Latest    []Teaser          `json:"latest"`
	Sections  []Section         `json:"sections"`
	Rubriques []models.Rubrique `json:"rubriques"`
}

// Page is a published article with its rendered body.
type Page struct {
	Teaser
	Author string   `json:"auteur,omitempty"`
	Tags   []string `json:"tags"`
	Body   string   `json:"body"`
}

type TeaserPage struct {
	Items []Teaser              `json:"items"`
	Meta  models.Page[struct{}] `json:"meta"`
}

type Service struct {
	be           Backend
	rubriques    Rubriques
	cache        *cache.Cache
	mediaBaseURL string
	log          *zap.Logger
}

func NewService(be Backend, rubriques Rubriques, c *cache.Cache, mediaBaseURL string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{be: be, rubriques: rubriques, cache: c, mediaBaseURL: mediaBaseURL, log: log}
}

func (s *Service) teaser(a models.Article) Teaser {
	t := Teaser{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		RubriqueID:  a.RubriqueID,
		Region:      a.Region,
		PublishedAt: a.PublishedAt,
	}
	if a.Cover != nil && a.Cover.AccessURL != "" {
		t.CoverURL = codec.MediaURL(a.Cover.AccessURL, s.mediaBaseURL)
	}
	return t
}

func (s *Service) teasers(list []models.Article) []Teaser {
	out := make([]Teaser, 0, len(list))
	for _, a := range list {
		if a.Status != "" && a.Status != models.StatusPublished {
			continue
		}
		out = append(out, s.teaser(a))
	}
	return out
}

// Home returns the latest articles and one section per top-level rubrique.
func (s *Service) Home(ctx context.Context) (*Home, error) {
	return cache.GetOrFetch(ctx, s.cache, article.PublicNamespace, "home", func(ctx context.Context) (*Home, error) {
		tree, err := s.rubriques.Tree(ctx)
		if err != nil {
			return nil, err
		}
		latest, err := s.be.ListPublished(ctx, models.ArticleFilter{Size: homeLatest})
		if err != nil {
			return nil, fmt.Errorf("latest articles: %w", err)
		}
		home := &Home{Latest: s.teasers(latest.Content), Sections: []Section{}, Rubriques: tree}
		for _, r := range tree {
			page, err := s.be.ListPublished(ctx, models.ArticleFilter{RubriqueID: r.ID, Size: homeSectionSize})
			if err != nil {
				s.log.Warn("home section skipped", zap.Int64("rubrique_id", r.ID), zap.Error(err))
				continue
			}
			if items := s.teasers(page.Content); len(items) > 0 {
				home.Sections = append(home.Sections, Section{Rubrique: r, Articles: items})
			}
		}
		return home, nil
	})
}

// ByRubrique lists published articles of a rubrique. ok is false when the
// rubrique does not exist.
func (s *Service) ByRubrique(ctx context.Context, id int64, q pagination.Query) (*TeaserPage, bool, error) {
	r, err := s.rubriques.Find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	key := fmt.Sprintf("rubrique:%d:%d:%d", id, q.Page, q.Size)
	page, err := cache.GetOrFetch(ctx, s.cache, article.PublicNamespace, key, func(ctx context.Context) (*TeaserPage, error) {
		p, err := s.be.ListPublished(ctx, models.ArticleFilter{RubriqueID: id, Page: q.BackendPage(), Size: q.Size})
		if err != nil {
			return nil, err
		}
		return &TeaserPage{
			Items: s.teasers(p.Content),
			Meta:  models.Page[struct{}]{TotalElements: p.TotalElements, TotalPages: p.TotalPages, Number: p.Number, Size: p.Size},
		}, nil
	})
	if err != nil {
		return nil, true, err
	}
	return page, true, nil
}

// Article returns a published article. ok is false for anything not
// published.
func (s *Service) Article(ctx context.Context, id int64) (*Page, bool, error) {
	page, err := cache.GetOrFetch(ctx, s.cache, article.PublicNamespace, "article:"+strconv.FormatInt(id, 10), func(ctx context.Context) (*Page, error) {
		a, err := s.be.GetArticle(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.Status != models.StatusPublished {
			return nil, nil
		}
		p := &Page{
			Teaser: s.teaser(*a),
			Tags:   a.Tags,
			Body:   codec.Deserialize(a.Blocks, codec.WithMediaBaseURL(s.mediaBaseURL)),
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if a.Author != nil {
			p.Author = fullName(*a.Author)
		}
		return p, nil
	})
	if err != nil {
		return nil, false, err
	}
	return page, page != nil, nil
}

func fullName(u models.User) string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the reader routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/public")
	p.GET("/home", h.home)
	p.GET("/rubriques/:id/articles", h.byRubrique)
	p.GET("/articles/:id", h.article)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Identifiant invalide")
		return 0, false
	}
	return id, true
}

// home GET /public/home
func (h *Handler) home(c *gin.Context) {
	home, err := h.svc.Home(c.Request.Context())
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	c.Header("Cache-Control", cacheControlPage)
	response.OK(c, home)
}

// byRubrique GET /public/rubriques/:id/articles
func (h *Handler) byRubrique(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	page, found, err := h.svc.ByRubrique(c.Request.Context(), id, pagination.FromContext(c))
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if !found {
		response.NotFoundMsg(c, "Rubrique introuvable")
		return
	}
	c.Header("Cache-Control", cacheControlPage)
	response.Paged(c, page.Items, pagination.FromPage(page.Meta))
}

// article GET /public/articles/:id
func (h *Handler) article(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	page, found, err := h.svc.Article(c.Request.Context(), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if !found {
		response.NotFoundMsg(c, "Article introuvable")
		return
	}
	c.Header("Cache-Control", cacheControlPage)
	response.OK(c, page)
}
