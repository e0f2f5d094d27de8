package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/todaysafrica/newsroom/internal/models"
)

func articlePath(id int64, action string) string {
	p := "/articles/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func filterQuery(f models.ArticleFilter) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(f.Page))
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	if f.Status != "" {
		q.Set("statut", string(f.Status))
	}
	if f.RubriqueID > 0 {
		q.Set("rubriqueId", strconv.FormatInt(f.RubriqueID, 10))
	}
	if f.AuthorID > 0 {
		q.Set("auteurId", strconv.FormatInt(f.AuthorID, 10))
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	return q
}

// ListArticles lists articles visible to the caller. Page is 0-based.
func (c *Client) ListArticles(ctx context.Context, f models.ArticleFilter) (*models.Page[models.Article], error) {
	var out models.Page[models.Article]
	if err := c.doJSON(ctx, http.MethodGet, "/articles", filterQuery(f), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPublished lists published articles for readers.
func (c *Client) ListPublished(ctx context.Context, f models.ArticleFilter) (*models.Page[models.Article], error) {
	f.Status = ""
	f.AuthorID = 0
	var out models.Page[models.Article]
	if err := c.doJSON(ctx, http.MethodGet, "/articles/publies", filterQuery(f), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetArticle(ctx context.Context, id int64) (*models.Article, error) {
	var out models.Article
	if err := c.doJSON(ctx, http.MethodGet, articlePath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateArticle(ctx context.Context, p models.ArticlePayload) (*models.Article, error) {
	var out models.Article
	if err := c.doJSON(ctx, http.MethodPost, "/articles", nil, p, &out); err != nil {
		return nil, err
	}
	if !out.IsPersisted() {
		return nil, &APIError{Method: http.MethodPost, Path: "/articles", Status: http.StatusOK, Message: "created article has no id", Kind: ErrUnavailable}
	}
	return &out, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id int64, p models.ArticlePayload) (*models.Article, error) {
	var out models.Article
	if err := c.doJSON(ctx, http.MethodPut, articlePath(id, ""), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) transition(ctx context.Context, id int64, action string, body any) (*models.Article, error) {
	var out models.Article
	if err := c.doJSON(ctx, http.MethodPut, articlePath(id, action), nil, body, &out); err != nil {
		return nil, err
	}
	if !out.IsPersisted() {
		return nil, nil
	}
	return &out, nil
}

// Submit sends a draft or rejected article to review. The returned article
// is nil when the backend answers without a body.
func (c *Client) Submit(ctx context.Context, id int64) (*models.Article, error) {
	return c.transition(ctx, id, "soumettre", nil)
}

func (c *Client) Approve(ctx context.Context, id int64) (*models.Article, error) {
	return c.transition(ctx, id, "approuver", nil)
}

func (c *Client) Reject(ctx context.Context, id int64, motif string) (*models.Article, error) {
	if motif == "" {
		return nil, fmt.Errorf("reject article %d: empty motif", id)
	}
	return c.transition(ctx, id, "rejeter", map[string]string{"motif": motif})
}

func (c *Client) Publish(ctx context.Context, id int64) (*models.Article, error) {
	return c.transition(ctx, id, "publier", nil)
}

func (c *Client) PublishAdvanced(ctx context.Context, id int64, cfg models.PublicationConfig) (*models.Article, error) {
	return c.transition(ctx, id, "publier-avance", cfg)
}

func (c *Client) Archive(ctx context.Context, id int64) (*models.Article, error) {
	return c.transition(ctx, id, "archiver", nil)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, articlePath(id, ""), nil, nil, nil)
}

// AutoTags asks the backend to suggest tags for a persisted article.
func (c *Client) AutoTags(ctx context.Context, id int64) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodPost, articlePath(id, "auto-tags"), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
