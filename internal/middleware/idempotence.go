package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "newsroom:idempotence:"
)

// Idempotence rejects a repeat of the same mutating request while the first
// is in flight, and for a minute after it succeeded. Failed requests release
// their key so the user can retry.
func Idempotence(store KeyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut && c.Request.Method != http.MethodDelete {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := idempotencePrefix + key
		acquired, err := store.SetNX(ctx, storeKey, "0", idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !acquired {
			msg := "Cette action a déjà été effectuée, patientez une minute avant de la relancer"
			if val, _ := store.Get(ctx, storeKey); val == "0" {
				msg = "Cette action est déjà en cours de traitement"
			}
			response.Conflict(c, msg)
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			_ = store.Set(ctx, storeKey, "1", keepTTL)
		} else {
			_ = store.Del(ctx, storeKey)
		}
	}
}

// resolveIdempotenceKey returns the idempotence key for the current request.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return CurrentSessionID(c) + "|" + hdr, nil
	}

	var body []byte
	if c.Request.Body != nil {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		body = raw
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	owner := CurrentSessionID(c)
	if owner == "" {
		owner = c.ClientIP() + "|" + c.Request.UserAgent()
	}
	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + owner
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
