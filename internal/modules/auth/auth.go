// Package auth signs dashboard users in against the backend and keeps their
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/middleware"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/apierror"
	jwtpkg "github.com/todaysafrica/newsroom/internal/pkg/jwt"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
	"github.com/todaysafrica/newsroom/internal/pkg/session"
)

const cookieName = "newsroom_session"

var (
	ErrInvalidToken = errors.New("backend issued an unusable token")
	ErrUnknownRole  = errors.New("account has no dashboard role")
)

type LoginDTO struct {
	Email    string `json:"email"      binding:"required,email"`
	Password string `json:"motDePasse" binding:"required"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type Backend interface {
	Login(ctx context.Context, cred backend.Credentials) (*backend.LoginResult, error)
}

type Service struct {
	be       Backend
	sessions *session.Manager
	tokens   *jwtpkg.Reader
	log      *zap.Logger
}

func NewService(be Backend, sessions *session.Manager, tokens *jwtpkg.Reader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{be: be, sessions: sessions, tokens: tokens, log: log}
}

// Login exchanges credentials for a backend token and opens a session
// bound to it. The session expires no later than the token.
func (s *Service) Login(ctx context.Context, email, password string) (*session.Session, error) {
	res, err := s.be.Login(ctx, backend.Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, err
	}

	var expiry time.Time
	claims, err := s.tokens.Parse(res.Token)
	switch {
	case err == nil:
		expiry = claims.Expiry()
	case errors.Is(err, jwtpkg.ErrMalformed) && !s.tokens.Verifies():
		s.log.Debug("backend token is opaque, using session ttl")
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if res.User == nil {
		return nil, fmt.Errorf("%w: no account in login response", ErrInvalidToken)
	}
	user := *res.User
	if user.Role == "" && claims != nil {
		user.Role = models.Role(strings.ToUpper(strings.TrimPrefix(claims.Role, "ROLE_")))
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleWriter {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, user.Role)
	}

	sess, err := s.sessions.Issue(ctx, res.Token, user, expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	s.log.Info("user signed in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, id string) error {
	return s.sessions.Revoke(ctx, id)
}

type Handler struct {
	svc    *Service
	secure bool
}

// NewHandler builds the auth handler. secure marks the session cookie
// Secure.
func NewHandler(svc *Service, secure bool) *Handler {
	return &Handler{svc: svc, secure: secure}
}

// RegisterRoutes mounts auth routes. limit guards login; authMW guards the
// session routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit, authMW gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", limit, h.login)
	a.GET("/me", authMW, h.me)
	a.POST("/logout", authMW, h.logout)
}

// login POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "Adresse e-mail et mot de passe requis")
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), dto.Email, dto.Password)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrBadRequest):
			response.Error(c, http.StatusUnauthorized, "Identifiants incorrects")
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrUnknownRole):
			_ = c.Error(err)
			response.Error(c, http.StatusUnauthorized, "Ce compte ne peut pas accéder à la rédaction")
		default:
			apierror.Respond(c, err)
		}
		return
	}
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, sess.ID, maxAge, "/", "", h.secure, true)
	response.OK(c, loginResponse{Token: sess.ID, ExpiresAt: sess.ExpiresAt, User: sess.User})
}

// me GET /auth/me
func (h *Handler) me(c *gin.Context) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, gin.H{"user": sess.User, "expiresAt": sess.ExpiresAt})
}

// logout POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	c.SetCookie(cookieName, "", -1, "/", "", h.secure, true)
	response.NoContent(c)
}
