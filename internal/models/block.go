package models

import "fmt"

// BlockType is the closed set of content block kinds.
type BlockType string

const (
	BlockText     BlockType = "TEXT"
	BlockImage    BlockType = "IMAGE"
	BlockCitation BlockType = "CITATION"
	BlockVideo    BlockType = "VIDEO"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockImage, BlockCitation, BlockVideo:
		return true
	}
	return false
}

// ContentBlock is one typed, ordered unit of article content.
type ContentBlock struct {
	ID      int64     `json:"id,omitempty"`
	Type    BlockType `json:"type"`
	Order   int       `json:"ordre"`
	Content string    `json:"contenu"`
	// MediaID is set only for IMAGE blocks whose upload the backend confirmed.
	MediaID *int64 `json:"mediaId"`
	Caption string `json:"legende,omitempty"`
	AltText string `json:"altText,omitempty"`
	URL     string `json:"url,omitempty"`
	Media   *Media `json:"media,omitempty"`
}

// ValidateOrder checks that blocks carry orders 0..n-1 in sequence.
func ValidateOrder(blocks []ContentBlock) error {
	for i, b := range blocks {
		if b.Order != i {
			return fmt.Errorf("block %d has order %d, expected %d", i, b.Order, i)
		}
	}
	return nil
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
