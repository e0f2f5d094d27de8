package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
	"github.com/todaysafrica/newsroom/internal/pkg/session"
)

const ContextKeySession = "session"

// Auth loads the dashboard session named by the bearer token and forwards
// its backend token on the request context.
func Auth(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := sessions.Lookup(c.Request.Context(), extractToken(c))
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				response.Unauthorized(c)
				return
			}
			response.InternalError(c, err)
			return
		}
		c.Set(ContextKeySession, s)
		c.Request = c.Request.WithContext(backend.WithToken(c.Request.Context(), s.Token))
		c.Next()
	}
}

// RequireRole allows only sessions whose user holds one of roles. It must
// run after Auth.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s == nil {
			response.Unauthorized(c)
			return
		}
		for _, r := range roles {
			if s.User.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c)
	}
}

// CurrentSession returns the session attached by Auth, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// CurrentSessionID returns the id of the attached session, or "".
func CurrentSessionID(c *gin.Context) string {
	if s := CurrentSession(c); s != nil {
		return s.ID
	}
	return ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	if raw, err := c.Cookie("newsroom_session"); err == nil {
		return NormalizeToken(raw)
	}
	return ""
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
