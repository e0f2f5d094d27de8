// Package jwt reads the claims of tokens issued by the newsroom backend.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrMalformed = errors.New("malformed token")

// Claims is the backend token payload.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwtlib.RegisteredClaims
}

// Expiry returns the token expiry, or the zero time when the token has none.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Reader extracts claims from backend tokens. With a secret it verifies HMAC
// signatures. Without one it only decodes, leaving verification to the
// backend that issued the token.
type Reader struct {
	secret []byte
}

func NewReader(secret string) *Reader {
	r := &Reader{}
	if secret != "" {
		r.secret = []byte(secret)
	}
	return r
}

// Verifies reports whether signatures are checked.
func (r *Reader) Verifies() bool { return len(r.secret) > 0 }

// Parse reads tokenStr and validates its time claims.
func (r *Reader) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if !r.Verifies() {
		if _, _, err := jwtlib.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := jwtlib.NewValidator().Validate(claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
