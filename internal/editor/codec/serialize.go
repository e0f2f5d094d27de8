package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/todaysafrica/newsroom/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrUnresolvedMedia is returned when an image still points at a local
// preview whose upload has not been confirmed by the backend.
var ErrUnresolvedMedia = errors.New("image references an unresolved upload")

// UnresolvedPolicy decides what Serialize does with unresolved images.
type UnresolvedPolicy int

const (
	// RejectUnresolved fails the whole serialization.
	RejectUnresolved UnresolvedPolicy = iota
	// DropUnresolved omits the offending image blocks.
	DropUnresolved
)

type serializeOptions struct {
	policy    UnresolvedPolicy
	isPending func(src string) bool
}

// SerializeOption configures Serialize.
type SerializeOption func(*serializeOptions)

// WithUnresolvedPolicy sets the policy applied to images whose source is
// still a local preview.
func WithUnresolvedPolicy(p UnresolvedPolicy) SerializeOption {
	return func(o *serializeOptions) { o.policy = p }
}

// WithPendingMatcher overrides how a source is recognised as unresolved.
func WithPendingMatcher(fn func(src string) bool) SerializeOption {
	return func(o *serializeOptions) {
		if fn != nil {
			o.isPending = fn
		}
	}
}

func isPreviewRef(src string) bool {
	return strings.HasPrefix(strings.TrimSpace(src), PreviewScheme)
}

// Serialize converts editor markup into ordered content blocks. Orders are
// assigned from 0 in document order over the emitted blocks only, so the
// result is always contiguous. An empty result is not an error.
func Serialize(markup string, opts ...SerializeOption) ([]models.ContentBlock, error) {
	o := serializeOptions{policy: RejectUnresolved, isPending: isPreviewRef}
	for _, opt := range opts {
		opt(&o)
	}

	nodes, err := ParseFragment(markup)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	blocks := make([]models.ContentBlock, 0, len(nodes))
	var unresolved []string
	for _, n := range nodes {
		block, ok, err := classify(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if block.Type == models.BlockImage && o.isPending(block.Content) {
			if o.policy == DropUnresolved {
				continue
			}
			unresolved = append(unresolved, block.Content)
			continue
		}
		block.Order = len(blocks)
		blocks = append(blocks, block)
	}
	if len(unresolved) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedMedia, strings.Join(unresolved, ", "))
	}
	return blocks, nil
}

// classify maps one top-level node to a block. ok is false for nodes that
// produce nothing.
func classify(n *html.Node) (block models.ContentBlock, ok bool, err error) {
	switch n.Type {
	case html.TextNode:
		if isBlank(n.Data) {
			return block, false, nil
		}
		content, err := outerHTML(n)
		if err != nil {
			return block, false, err
		}
		return models.ContentBlock{Type: models.BlockText, Content: content}, true, nil
	case html.ElementNode:
	default:
		return block, false, nil
	}

	if img, caption := soleImage(n); img != nil {
		return imageBlock(img, caption)
	}

	if n.DataAtom == atom.Blockquote {
		inner, err := innerHTML(n)
		if err != nil {
			return block, false, err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" {
			return block, false, nil
		}
		return models.ContentBlock{Type: models.BlockCitation, Content: inner}, true, nil
	}

	if src := videoSource(n); src != "" {
		return models.ContentBlock{Type: models.BlockVideo, Content: src, URL: src}, true, nil
	}

	if IsEmpty(n) {
		return block, false, nil
	}
	content, err := outerHTML(n)
	if err != nil {
		return block, false, err
	}
	return models.ContentBlock{Type: models.BlockText, Content: content}, true, nil
}

func imageBlock(img *html.Node, figCaption string) (models.ContentBlock, bool, error) {
	src := strings.TrimSpace(Attr(img, "src"))
	if src == "" {
		return models.ContentBlock{}, false, nil
	}
	caption := Attr(img, "title")
	if caption == "" {
		caption = Attr(img, AttrCaption)
	}
	if caption == "" {
		caption = figCaption
	}
	block := models.ContentBlock{
		Type:    models.BlockImage,
		Content: src,
		URL:     src,
		AltText: Attr(img, "alt"),
		Caption: strings.TrimSpace(caption),
	}
	if raw := strings.TrimSpace(Attr(img, AttrMediaID)); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			block.MediaID = &id
		}
	}
	return block, true, nil
}

// soleImage returns the image n is or directly wraps as its only content.
// For <figure>, a <figcaption> sibling is allowed and its text returned.
func soleImage(n *html.Node) (*html.Node, string) {
	if n.DataAtom == atom.Img {
		return n, ""
	}
	children, ok := significantChildren(n)
	if !ok {
		return nil, ""
	}
	var img *html.Node
	caption := ""
	for _, c := range children {
		switch {
		case c.DataAtom == atom.Figcaption && n.DataAtom == atom.Figure:
			caption = strings.TrimSpace(textContent(c))
		case c.DataAtom == atom.Br:
		case c.DataAtom == atom.Img && img == nil:
			img = c
		default:
			return nil, ""
		}
	}
	return img, caption
}

func videoSource(n *html.Node) string {
	if v := strings.TrimSpace(Attr(n, AttrVideoURL)); v != "" {
		return v
	}
	if n.DataAtom == atom.Video || n.DataAtom == atom.Iframe {
		if src := strings.TrimSpace(Attr(n, "src")); src != "" {
			return src
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Source {
				if src := strings.TrimSpace(Attr(c, "src")); src != "" {
					return src
				}
			}
		}
		return ""
	}
	children, ok := significantChildren(n)
	if ok && len(children) == 1 {
		c := children[0]
		if c.DataAtom == atom.Video || c.DataAtom == atom.Iframe {
			return videoSource(c)
		}
	}
	return ""
}
