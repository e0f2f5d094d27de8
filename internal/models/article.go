package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the publication workflow state of an article.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusApproved      Status = "APPROVED"
	StatusPublished     Status = "PUBLISHED"
	StatusRejected      Status = "REJECTED"
	StatusArchived      Status = "ARCHIVED"
)

var allStatuses = []Status{
	StatusDraft, StatusPendingReview, StatusApproved,
	StatusPublished, StatusRejected, StatusArchived,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown article status %q", raw)
	}
	return s, nil
}

// Article is the backend's article entity. The backend is the system of
// record; this is a working copy.
type Article struct {
	Base
	Title           string         `json:"titre"`
	Description     string         `json:"description"`
	RubriqueID      int64          `json:"rubriqueId"`
	Rubrique        *Rubrique      `json:"rubrique,omitempty"`
	AuthorID        int64          `json:"auteurId"`
	Author          *User          `json:"auteur,omitempty"`
	CoverMediaID    *int64         `json:"imageCouvertureId"`
	Cover           *Media         `json:"imageCouverture,omitempty"`
	Region          Region         `json:"region,omitempty"`
	Status          Status         `json:"statut"`
	Blocks          []ContentBlock `json:"blocsContenu"`
	Tags            []string       `json:"tags,omitempty"`
	RejectionReason string         `json:"motifRejet,omitempty"`
	PublishedAt     *time.Time     `json:"datePublication,omitempty"`
}

// ArticlePayload is the create/update request body the backend accepts.
type ArticlePayload struct {
	Title        string         `json:"titre"`
	Description  string         `json:"description"`
	RubriqueID   int64          `json:"rubriqueId"`
	AuthorID     int64          `json:"auteurId"`
	CoverMediaID *int64         `json:"imageCouvertureId"`
	Region       Region         `json:"region,omitempty"`
	Status       Status         `json:"statut"`
	Blocks       []ContentBlock `json:"blocsContenu"`
}

// ArticleFilter narrows backend article listings.
type ArticleFilter struct {
	Status     Status
	RubriqueID int64
	AuthorID   int64
	Query      string
	Page       int
	Size       int
}
