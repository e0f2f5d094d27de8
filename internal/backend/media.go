package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/todaysafrica/newsroom/internal/models"
)

// Upload is a file sent to the media endpoint.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadMedia stores a file on the backend and returns its media record.
func (c *Client) UploadMedia(ctx context.Context, up Upload) (*models.Media, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Name))
	if up.ContentType != "" {
		header.Set("Content-Type", up.ContentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out models.Media
	if err := c.do(ctx, http.MethodPost, "/medias/upload", nil, &buf, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
