// Package rubrique serves the rubrique (category) tree.
package rubrique

import (
	"context"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/apierror"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const cacheNamespace = "rubriques"

type Backend interface {
	ListRubriques(ctx context.Context) ([]models.Rubrique, error)
}

type Service struct {
	be    Backend
	cache *cache.Cache
}

func NewService(be Backend, c *cache.Cache) *Service {
	return &Service{be: be, cache: c}
}

// Tree returns the rubriques as a forest ordered by name.
func (s *Service) Tree(ctx context.Context) ([]models.Rubrique, error) {
	return cache.GetOrFetch(ctx, s.cache, cacheNamespace, "tree", func(ctx context.Context) ([]models.Rubrique, error) {
		flat, err := s.be.ListRubriques(ctx)
		if err != nil {
			return nil, err
		}
		return BuildTree(flat), nil
	})
}

// Find returns the rubrique with id anywhere in the tree.
func (s *Service) Find(ctx context.Context, id int64) (*models.Rubrique, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return find(tree, id), nil
}

func find(nodes []models.Rubrique, id int64) *models.Rubrique {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if r := find(nodes[i].Children, id); r != nil {
			return r
		}
	}
	return nil
}

// BuildTree links a flat rubrique list through ParentID. Children already
// nested in the input are flattened first, so the backend may return
// either shape. A rubrique whose parent is missing, or that sits on a
// parent cycle, becomes a root.
func BuildTree(list []models.Rubrique) []models.Rubrique {
	byID := make(map[int64]models.Rubrique)
	var order []int64
	var collect func(rs []models.Rubrique, parent *int64)
	collect = func(rs []models.Rubrique, parent *int64) {
		for _, r := range rs {
			if _, dup := byID[r.ID]; dup {
				continue
			}
			children := r.Children
			r.Children = nil
			if r.ParentID == nil && parent != nil {
				p := *parent
				r.ParentID = &p
			}
			byID[r.ID] = r
			order = append(order, r.ID)
			id := r.ID
			collect(children, &id)
		}
	}
	collect(list, nil)

	childrenOf := make(map[int64][]int64)
	var roots []int64
	for _, id := range order {
		r := byID[id]
		if r.ParentID == nil || !reachesRoot(byID, id) {
			roots = append(roots, id)
			continue
		}
		childrenOf[*r.ParentID] = append(childrenOf[*r.ParentID], id)
	}

	var build func(id int64) models.Rubrique
	build = func(id int64) models.Rubrique {
		r := byID[id]
		for _, cid := range childrenOf[id] {
			r.Children = append(r.Children, build(cid))
		}
		sortByName(r.Children)
		return r
	}
	out := make([]models.Rubrique, 0, len(roots))
	for _, id := range roots {
		root := build(id)
		root.ParentID = nil
		out = append(out, root)
	}
	sortByName(out)
	return out
}

// reachesRoot reports whether following parents from id ends at a root
// without a cycle or a missing parent.
func reachesRoot(byID map[int64]models.Rubrique, id int64) bool {
	seen := map[int64]bool{id: true}
	cur := byID[id]
	for cur.ParentID != nil {
		pid := *cur.ParentID
		p, ok := byID[pid]
		if !ok || seen[pid] {
			return false
		}
		seen[pid] = true
		cur = p
	}
	return true
}

func sortByName(rs []models.Rubrique) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts rubrique routes onto the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rubriques", h.tree)
	rg.GET("/rubriques/:id", h.get)
}

// tree GET /rubriques
func (h *Handler) tree(c *gin.Context) {
	tree, err := h.svc.Tree(c.Request.Context())
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	response.OK(c, tree)
}

// get GET /rubriques/:id
func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Identifiant de rubrique invalide")
		return
	}
	r, err := h.svc.Find(c.Request.Context(), id)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	if r == nil {
		response.NotFoundMsg(c, "Rubrique introuvable")
		return
	}
	response.OK(c, r)
}
