package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todaysafrica/newsroom/internal/config"
	"github.com/todaysafrica/newsroom/internal/models"
)

// fakeNewsroom is an in-memory stand-in for the editorial backend.
type fakeNewsroom struct {
	mu       sync.Mutex
	articles map[int64]*models.Article
	nextID   int64
}

func (f *fakeNewsroom) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	path := strings.TrimPrefix(r.URL.Path, "/api")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case path == "/auth/login":
		reply(http.StatusOK, map[string]any{
			"token":       "backend-token",
			"utilisateur": models.User{ID: 1, Email: "chef@ta.africa", Role: models.RoleAdmin},
		})
	case r.Method != http.MethodGet && r.Header.Get("Authorization") != "Bearer backend-token":
		reply(http.StatusUnauthorized, map[string]string{"message": "jeton manquant"})
	case path == "/rubriques":
		reply(http.StatusOK, []models.Rubrique{{ID: 2, Name: "Économie"}})
	case path == "/articles" && r.Method == http.MethodPost:
		var p models.ArticlePayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.nextID++
		a := &models.Article{
			Base: models.Base{ID: f.nextID}, Title: p.Title, Description: p.Description,
			RubriqueID: p.RubriqueID, AuthorID: p.AuthorID, Status: p.Status, Blocks: p.Blocks,
		}
		f.articles[a.ID] = a
		reply(http.StatusCreated, a)
	case path == "/articles/publies":
		var out []models.Article
		for _, a := range f.articles {
			if a.Status == models.StatusPublished {
				out = append(out, *a)
			}
		}
		reply(http.StatusOK, models.Page[models.Article]{Content: out, TotalElements: int64(len(out)), TotalPages: 1})
	case len(parts) >= 2 && parts[0] == "articles":
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		a, ok := f.articles[id]
		if !ok {
			reply(http.StatusNotFound, map[string]string{"message": "introuvable"})
			return
		}
		if len(parts) == 2 {
			reply(http.StatusOK, a)
			return
		}
		next := map[string]models.Status{
			"soumettre": models.StatusPendingReview,
			"approuver": models.StatusApproved,
			"publier":   models.StatusPublished,
		}[parts[2]]
		if next == "" {
			reply(http.StatusNotFound, map[string]string{"message": "action"})
			return
		}
		a.Status = next
		w.WriteHeader(http.StatusNoContent)
	default:
		reply(http.StatusNotFound, map[string]string{"message": "route"})
	}
}

func newTestApp(t *testing.T, extra string) *App {
	t.Helper()
	be := httptest.NewServer(&fakeNewsroom{articles: map[int64]*models.Article{}})
	t.Cleanup(be.Close)

	cfg, err := config.Parse([]byte(fmt.Sprintf("backend:\n  base_url: %s/api\n%s", be.URL, extra)))
	require.NoError(t, err)
	a, err := New(nil, cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func runNewsroomFlow(t *testing.T, a *App) {
	c := &client{t: t, h: a.Router()}

	rec := c.do(http.MethodGet, "/api/articles", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "chef@ta.africa", "motDePasse": "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	c.token = login.Token

	rec = c.do(http.MethodPost, "/api/articles", map[string]any{
		"titre":       "La ZLECAf un an après",
		"description": "Bilan de la zone de libre-échange continentale africaine.",
		"rubriqueId":  2,
		"markup":      "<p>Le commerce intra-africain progresse.</p>",
		"submit":      true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var saved struct {
		Article   models.Article `json:"article"`
		Submitted bool           `json:"submitted"`
		Actions   []string       `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.True(t, saved.Submitted)
	assert.Equal(t, models.StatusPendingReview, saved.Article.Status)
	assert.Equal(t, []string{"approve", "reject"}, saved.Actions)
	id := strconv.FormatInt(saved.Article.ID, 10)

	rec = c.do(http.MethodPost, "/api/articles/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.do(http.MethodPost, "/api/articles/"+id+"/approve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/api/articles/"+id+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	anon := &client{t: t, h: a.Router()}
	rec = anon.do(http.MethodGet, "/api/public/articles/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Le commerce intra-africain progresse.")

	rec = c.do(http.MethodGet, "/api/admin/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "expire_editor_sessions")
}

func TestApp_MemoryStores(t *testing.T) {
	a := newTestApp(t, "")
	runNewsroomFlow(t, a)
	assert.Contains(t, fmt.Sprint(a.sched.List()), "sweep_memory_stores")
}

func TestApp_RedisStores(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newTestApp(t, fmt.Sprintf("redis:\n  enable: true\n  url: redis://%s/0\n", mr.Addr()))
	runNewsroomFlow(t, a)
	assert.NotEmpty(t, mr.Keys())
}

func TestApp_UnknownRoute(t *testing.T) {
	a := newTestApp(t, "")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorsConfig_AllowedOrigins(t *testing.T) {
	cfg := &config.AppConfig{
		Env:            "production",
		AllowedOrigins: []string{"https://*.todaysafrica.com", "localhost:*", "todaysafrica.com"},
	}
	allow := corsConfig(cfg).AllowOriginFunc

	assert.True(t, allow("https://admin.todaysafrica.com"))
	assert.False(t, allow("http://admin.todaysafrica.com"))
	assert.True(t, allow("http://localhost:5173"))
	assert.False(t, allow("http://localhost.evil.com:5173"))
	assert.True(t, allow("https://todaysafrica.com"))
	assert.False(t, allow("https://todaysafrica.org"))

	assert.False(t, corsConfig(&config.AppConfig{Env: "production"}).AllowOriginFunc("https://x.io"))
	assert.True(t, corsConfig(&config.AppConfig{Env: "development"}).AllowOriginFunc("https://x.io"))
}

func TestParseTimezoneLocation(t *testing.T) {
	for _, raw := range []string{"+01:00", "+0100", "UTC+1"} {
		loc, err := parseTimezoneLocation(raw)
		require.NoError(t, err, raw)
		_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, loc).Zone()
		assert.Equal(t, 3600, offset, raw)
	}

	loc, err := parseTimezoneLocation("-05:30")
	require.NoError(t, err)
	assert.Equal(t, "UTC-05:30", loc.String())

	_, err = parseTimezoneLocation("Mars/Olympus")
	assert.Error(t, err)
	_, err = parseTimezoneLocation("+25:00")
	assert.Error(t, err)
}
