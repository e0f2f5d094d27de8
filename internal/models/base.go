package models

import (
	"time"
)

// Base carries the identifier and audit timestamps the backend returns for
// every entity. IDs are assigned by the backend and never invented here.
type Base struct {
	ID        int64      `json:"id"`
	CreatedAt *time.Time `json:"dateCreation,omitempty"`
	UpdatedAt *time.Time `json:"dateModification,omitempty"`
}

// IsPersisted reports whether the backend has assigned an identifier.
func (b Base) IsPersisted() bool { return b.ID > 0 }

// Page is the paginated envelope returned by backend list endpoints.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}
