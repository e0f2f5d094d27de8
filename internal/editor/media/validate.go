package media

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

const DefaultMaxBytes int64 = 10 << 20

var (
	ErrEmpty           = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrStorage         = errors.New("media storage failed")
)

// File is a locally selected file awaiting upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Limits bounds what the resolver accepts.
type Limits struct {
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultLimits accepts common web image formats up to 10 MB.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:     DefaultMaxBytes,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

// Validate checks size and sniffed MIME type, returning the detected type.
// The declared content type of f is ignored.
func Validate(f File, l Limits) (string, error) {
	if len(f.Data) == 0 {
		return "", ErrEmpty
	}
	max := l.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	if int64(len(f.Data)) > max {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(f.Data), max)
	}
	detected := mimetype.Detect(f.Data)
	allowed := l.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultLimits().AllowedTypes
	}
	for _, t := range allowed {
		if detected.Is(t) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
}
