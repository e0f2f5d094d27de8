package backend

import (
	"context"
	"net/http"

	"github.com/todaysafrica/newsroom/internal/models"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"motDePasse"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"utilisateur,omitempty"`
}

// Login exchanges credentials for a backend token. When the backend does not
// return the account with the token, it is fetched with Me.
func (c *Client) Login(ctx context.Context, cred Credentials) (*LoginResult, error) {
	var out LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, cred, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &APIError{Method: http.MethodPost, Path: "/auth/login", Status: http.StatusOK, Message: "no token in response", Kind: ErrUnavailable}
	}
	if out.User == nil {
		u, err := c.Me(WithToken(ctx, out.Token))
		if err != nil {
			return nil, err
		}
		out.User = u
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
