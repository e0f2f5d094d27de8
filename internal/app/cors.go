package app

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"

	"github.com/todaysafrica/newsroom/internal/config"
)

// originRule is one entry of allowed_origins. A rule may pin the scheme
// ("https://*.todaysafrica.com"), wildcard the leftmost labels
// ("*.todaysafrica.com") or the port ("localhost:*").
type originRule struct {
	scheme string
	host   string
}

func parseOriginRule(raw string) originRule {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if scheme, rest, ok := strings.Cut(raw, "://"); ok {
		return originRule{scheme: scheme, host: strings.TrimSuffix(rest, "/")}
	}
	return originRule{host: strings.TrimSuffix(raw, "/")}
}

func (r originRule) allows(scheme, host string) bool {
	if r.scheme != "" && r.scheme != scheme {
		return false
	}
	return matchOriginPattern(r.host, host)
}

// splitOrigin returns the lowercased scheme and "host[:port]" of origin.
func splitOrigin(origin string) (scheme, host string) {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(origin)))
	if err != nil || u.Host == "" {
		return "", strings.ToLower(origin)
	}
	return u.Scheme, u.Host
}

func matchOriginPattern(pattern, host string) bool {
	switch {
	case pattern == "*" || pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		name, _, ok := strings.Cut(host, ":")
		return ok && name == strings.TrimSuffix(pattern, ":*")
	}
	return false
}

// corsConfig lets the dashboard and the public site call the API with
// credentials. Without allowed_origins every origin passes outside
// production and none passes in production.
func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		open := !cfg.IsProduction()
		c.AllowOriginFunc = func(string) bool { return open }
		return c
	}

	rules := make([]originRule, 0, len(cfg.AllowedOrigins))
	for _, raw := range cfg.AllowedOrigins {
		rules = append(rules, parseOriginRule(raw))
	}
	c.AllowOriginFunc = func(origin string) bool {
		scheme, host := splitOrigin(origin)
		for _, r := range rules {
			if r.allows(scheme, host) {
				return true
			}
		}
		return false
	}
	return c
}
