package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todaysafrica/newsroom/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLogin_FetchesUserWhenMissing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var cred Credentials
			require.NoError(t, json.NewDecoder(r.Body).Decode(&cred))
			assert.Equal(t, "k.mensah@todaysafrica.com", cred.Email)
			writeJSON(w, http.StatusOK, map[string]string{"token": "tok-1"})
		case "/api/auth/me":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"id": 3, "email": "k.mensah@todaysafrica.com", "role": "ADMIN"})
		default:
			http.NotFound(w, r)
		}
	})

	res, err := c.Login(context.Background(), Credentials{Email: "k.mensah@todaysafrica.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	require.NotNil(t, res.User)
	assert.True(t, res.User.IsAdmin())
}

func TestCreateArticle_SendsFrenchPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/articles", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Sommet", body["titre"])
		assert.Nil(t, body["imageCouvertureId"])
		blocks := body["blocsContenu"].([]any)
		require.Len(t, blocks, 1)
		assert.Equal(t, float64(0), blocks[0].(map[string]any)["ordre"])

		writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "titre": "Sommet", "statut": "DRAFT"})
	})

	ctx := WithToken(context.Background(), "tok")
	a, err := c.CreateArticle(ctx, models.ArticlePayload{
		Title:  "Sommet",
		Status: models.StatusDraft,
		Blocks: []models.ContentBlock{{Type: models.BlockText, Order: 0, Content: "<p>x</p>"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), a.ID)
	assert.Equal(t, models.StatusDraft, a.Status)
}

func TestTransitions_UseDedicatedEndpoints(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/articles/5/rejeter" {
			raw, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"motif":"Sources manquantes"}`, string(raw))
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 5})
	})
	ctx := context.Background()

	_, err := c.Submit(ctx, 5)
	require.NoError(t, err)
	_, err = c.Approve(ctx, 5)
	require.NoError(t, err)
	_, err = c.Reject(ctx, 5, "Sources manquantes")
	require.NoError(t, err)
	_, err = c.Publish(ctx, 5)
	require.NoError(t, err)
	_, err = c.PublishAdvanced(ctx, 5, models.PublicationConfig{NotifySubscribers: true})
	require.NoError(t, err)
	_, err = c.Archive(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, 5))

	assert.Equal(t, []string{
		"PUT /api/articles/5/soumettre",
		"PUT /api/articles/5/approuver",
		"PUT /api/articles/5/rejeter",
		"PUT /api/articles/5/publier",
		"PUT /api/articles/5/publier-avance",
		"PUT /api/articles/5/archiver",
		"DELETE /api/articles/5",
	}, got)
}

func TestErrors_MapStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrForbidden},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
		{http.StatusRequestEntityTooLarge, ErrPayloadTooLarge},
		{http.StatusUnsupportedMediaType, ErrUnsupportedMedia},
		{http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "refusé"})
			})
			_, err := c.GetArticle(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, "refusé", apiErr.Message)
		})
	}
}

func TestNetworkFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.ListRubriques(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUploadMedia_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "photo.png", hdr.Filename)
		assert.Equal(t, []byte("png-bytes"), data)
		writeJSON(w, http.StatusOK, map[string]any{"id": 42, "url": "https://cdn/x.png", "mimeType": "image/png"})
	})

	m, err := c.UploadMedia(context.Background(), Upload{Name: "photo.png", ContentType: "image/png", Data: []byte("png-bytes")})
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, "https://cdn/x.png", m.AccessURL)
}

func TestListArticles_Query(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "PENDING_REVIEW", r.URL.Query().Get("statut"))
		assert.Equal(t, "4", r.URL.Query().Get("rubriqueId"))
		writeJSON(w, http.StatusOK, map[string]any{
			"content":       []map[string]any{{"id": 1, "titre": "A"}},
			"totalElements": 11, "totalPages": 2, "number": 1, "size": 10,
		})
	})

	page, err := c.ListArticles(context.Background(), models.ArticleFilter{Page: 1, Size: 10, Status: models.StatusPendingReview, RubriqueID: 4})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(11), page.TotalElements)
}
