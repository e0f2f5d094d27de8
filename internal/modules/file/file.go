// Package file sends uploaded files to the backend media store.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/backend"
	"github.com/todaysafrica/newsroom/internal/editor/media"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/apierror"
	"github.com/todaysafrica/newsroom/internal/pkg/response"
)

const formField = "file"

type Backend interface {
	UploadMedia(ctx context.Context, up backend.Upload) (*models.Media, error)
}

// Uploader stores validated files on the backend. It reads the backend
// token from the context it is given.
type Uploader struct {
	be Backend
}

func NewUploader(be Backend) *Uploader { return &Uploader{be: be} }

// Upload implements media.Uploader.
func (u *Uploader) Upload(ctx context.Context, f media.File) (*models.Media, error) {
	m, err := u.be.UploadMedia(ctx, backend.Upload{
		Name:        safeName(f.Name),
		ContentType: f.ContentType,
		Data:        f.Data,
	})
	switch {
	case err == nil:
		return m, nil
	case errors.Is(err, backend.ErrPayloadTooLarge):
		return nil, fmt.Errorf("%w: %v", media.ErrTooLarge, err)
	case errors.Is(err, backend.ErrUnsupportedMedia):
		return nil, fmt.Errorf("%w: %v", media.ErrUnsupportedType, err)
	default:
		return nil, fmt.Errorf("%w: %v", media.ErrStorage, err)
	}
}

// ReadForm reads the multipart file field of c, refusing anything larger
// than limits allow before it is read into memory.
func ReadForm(c *gin.Context, limits media.Limits) (media.File, error) {
	fh, err := c.FormFile(formField)
	if err != nil {
		return media.File{}, media.ErrEmpty
	}
	max := limits.MaxBytes
	if max <= 0 {
		max = media.DefaultMaxBytes
	}
	if fh.Size > max {
		return media.File{}, fmt.Errorf("%w: %d bytes, limit %d", media.ErrTooLarge, fh.Size, max)
	}
	src, err := fh.Open()
	if err != nil {
		return media.File{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, max+1))
	if err != nil {
		return media.File{}, fmt.Errorf("read upload: %w", err)
	}
	return media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

type Handler struct {
	up     *Uploader
	limits media.Limits
	log    *zap.Logger
}

func NewHandler(up *Uploader, limits media.Limits, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{up: up, limits: limits, log: log}
}

// RegisterRoutes mounts the direct upload route used for cover images.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/media", h.upload)
}

// upload POST /media
func (h *Handler) upload(c *gin.Context) {
	f, err := ReadForm(c, h.limits)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	contentType, err := media.Validate(f, h.limits)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	f.ContentType = contentType

	m, err := h.up.Upload(c.Request.Context(), f)
	if err != nil {
		apierror.Respond(c, err)
		return
	}
	h.log.Info("media uploaded", zap.Int64("media_id", m.ID), zap.String("name", f.Name))
	response.Created(c, m)
}
