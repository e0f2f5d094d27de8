package public

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/article"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeBackend struct {
	articles map[int64]models.Article
	lists    int
	gets     int
}

func (f *fakeBackend) ListPublished(_ context.Context, flt models.ArticleFilter) (*models.Page[models.Article], error) {
	f.lists++
	var out []models.Article
	for _, a := range f.articles {
		if a.Status != models.StatusPublished {
			continue
		}
		if flt.RubriqueID > 0 && a.RubriqueID != flt.RubriqueID {
			continue
		}
		out = append(out, a)
	}
	return &models.Page[models.Article]{Content: out, TotalElements: int64(len(out)), TotalPages: 1, Size: flt.Size}, nil
}

func (f *fakeBackend) GetArticle(_ context.Context, id int64) (*models.Article, error) {
	f.gets++
	a, ok := f.articles[id]
	if !ok {
		return nil, &backend.APIError{Status: 404, Kind: backend.ErrNotFound}
	}
	return &a, nil
}

type fakeRubriques struct{ tree []models.Rubrique }

func (f fakeRubriques) Tree(context.Context) ([]models.Rubrique, error) { return f.tree, nil }

func (f fakeRubriques) Find(_ context.Context, id int64) (*models.Rubrique, error) {
	for i := range f.tree {
		if f.tree[i].ID == id {
			return &f.tree[i], nil
		}
	}
	return nil, nil
}

func fixture() (*fakeBackend, *Service, *cache.Cache) {
	be := &fakeBackend{articles: map[int64]models.Article{
		1: {
			Base: models.Base{ID: 1}, Title: "Publié", RubriqueID: 10, Status: models.StatusPublished,
			Cover:  &models.Media{ID: 5, AccessURL: "/medias/5.jpg"},
			Author: &models.User{FirstName: "Awa", LastName: "Diop"},
			Blocks: []models.ContentBlock{
				{Type: models.BlockText, Order: 1, Content: "<p>Suite</p>"},
				{Type: models.BlockText, Order: 0, Content: "<p>Début</p>"},
			},
		},
		2: {Base: models.Base{ID: 2}, Title: "Brouillon", RubriqueID: 10, Status: models.StatusDraft},
	}}
	c := cache.New(cache.NewMemoryKV(), time.Minute)
	rubs := fakeRubriques{tree: []models.Rubrique{{ID: 10, Name: "Politique"}, {ID: 11, Name: "Sport"}}}
	return be, NewService(be, rubs, c, "https://media.example", nil), c
}

func TestArticle_PublishedOnly(t *testing.T) {
	_, svc, _ := fixture()
	ctx := context.Background()

	page, ok, err := svc.Article(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<p>Début</p><p>Suite</p>", page.Body)
	assert.Equal(t, "https://media.example/medias/5.jpg", page.CoverURL)
	assert.Equal(t, "Awa Diop", page.Author)

	_, ok, err = svc.Article(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHome_CachedUntilInvalidated(t *testing.T) {
	be, svc, c := fixture()
	ctx := context.Background()

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home.Latest, 1)
	require.Len(t, home.Sections, 1)
	assert.Equal(t, "Politique", home.Sections[0].Rubrique.Name)
	calls := be.lists

	_, err = svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, calls, be.lists)

	require.NoError(t, c.Invalidate(ctx, article.PublicNamespace))
	_, err = svc.Home(ctx)
	require.NoError(t, err)
	assert.Greater(t, be.lists, calls)
}

func TestHandler_Routes(t *testing.T) {
	_, svc, _ := fixture()
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/public/articles/2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = get("/api/public/articles/99")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get("/api/public/rubriques/10/articles?page=1&size=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data []Teaser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Publié", body.Data[0].Title)
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))

	rec = get("/api/public/rubriques/404/articles")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
