package backend

import (
	"context"
	"net/http"

	"github.com/todaysafrica/newsroom/internal/models"
)

// ListRubriques returns every rubrique as a flat list linked by ParentID.
func (c *Client) ListRubriques(ctx context.Context) ([]models.Rubrique, error) {
	var out []models.Rubrique
	if err := c.doJSON(ctx, http.MethodGet, "/rubriques", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
