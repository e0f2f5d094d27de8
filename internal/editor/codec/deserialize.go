package codec

import (
	"html"
	"sort"
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/todaysafrica/newsroom/internal/models"
)

type deserializeOptions struct {
	mediaBaseURL string
}

// DeserializeOption configures Deserialize.
type DeserializeOption func(*deserializeOptions)

// WithMediaBaseURL resolves relative image paths against base.
func WithMediaBaseURL(base string) DeserializeOption {
	return func(o *deserializeOptions) { o.mediaBaseURL = strings.TrimRight(strings.TrimSpace(base), "/") }
}

// Deserialize rebuilds editor markup from stored blocks. Blocks are ordered
// by their Order field, not by slice position.
func Deserialize(blocks []models.ContentBlock, opts ...DeserializeOption) string {
	var o deserializeOptions
	for _, opt := range opts {
		opt(&o)
	}

	sorted := make([]models.ContentBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var sb strings.Builder
	for _, b := range sorted {
		sb.WriteString(o.fragment(b))
	}
	return sb.String()
}

// fragment renders a single block as editor markup.
func (o deserializeOptions) fragment(b models.ContentBlock) string {
	switch b.Type {
	case models.BlockImage:
		src := o.imageSource(b)
		if src == "" {
			return ""
		}
		var sb strings.Builder
		sb.WriteString(`<img src="`)
		sb.WriteString(html.EscapeString(src))
		sb.WriteString(`"`)
		if b.AltText != "" {
			sb.WriteString(` alt="` + html.EscapeString(b.AltText) + `"`)
		}
		if b.Caption != "" {
			sb.WriteString(` title="` + html.EscapeString(b.Caption) + `"`)
		}
		if id := blockMediaID(b); id > 0 {
			sb.WriteString(` ` + AttrMediaID + `="` + strconv.FormatInt(id, 10) + `"`)
		}
		sb.WriteString(`/><p></p>`)
		return sb.String()
	case models.BlockCitation:
		return "<blockquote>" + b.Content + "</blockquote>"
	case models.BlockVideo:
		u := strings.TrimSpace(b.Content)
		if u == "" {
			u = strings.TrimSpace(b.URL)
		}
		if u == "" {
			return ""
		}
		esc := html.EscapeString(u)
		return `<p ` + AttrVideoURL + `="` + esc + `">` + esc + `</p>`
	default:
		return textFragment(b.Content)
	}
}

var inlineAtoms = map[atom.Atom]bool{
	atom.A: true, atom.B: true, atom.Strong: true, atom.Em: true, atom.I: true,
	atom.U: true, atom.S: true, atom.Span: true, atom.Code: true, atom.Br: true,
	atom.Sub: true, atom.Sup: true, atom.Mark: true, atom.Small: true,
}

// textFragment wraps TEXT content holding bare text or inline markup in a
// paragraph so adjacent blocks stay separate.
func textFragment(content string) string {
	if isBlank(content) {
		return content
	}
	nodes, err := ParseFragment(content)
	if err != nil {
		return "<p>" + content + "</p>"
	}
	for _, n := range nodes {
		switch {
		case n.Type == xhtml.TextNode && !isBlank(n.Data),
			n.Type == xhtml.ElementNode && inlineAtoms[n.DataAtom]:
			return "<p>" + content + "</p>"
		}
	}
	return content
}

// imageSource prefers an absolute server URL over a relative path.
func (o deserializeOptions) imageSource(b models.ContentBlock) string {
	candidates := []string{b.URL, b.Content}
	if b.Media != nil {
		candidates = append([]string{b.Media.AccessURL}, candidates...)
	}
	first := ""
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if isAbsoluteURL(c) {
			return c
		}
		if first == "" {
			first = c
		}
	}
	if first == "" || o.mediaBaseURL == "" {
		return first
	}
	return o.mediaBaseURL + "/" + strings.TrimLeft(first, "/")
}

func blockMediaID(b models.ContentBlock) int64 {
	if b.MediaID != nil {
		return *b.MediaID
	}
	if b.Media != nil {
		return b.Media.ID
	}
	return 0
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") || strings.HasPrefix(lower, "data:")
}

// MediaURL resolves a media path against base the way image blocks are.
func MediaURL(src, base string) string {
	var o deserializeOptions
	WithMediaBaseURL(base)(&o)
	return o.imageSource(models.ContentBlock{URL: src})
}
