package codec

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PreviewScheme prefixes local preview references that have not yet been
// replaced by a server URL.
const PreviewScheme = "blob:"

// Attributes the editor markup uses to carry block metadata.
const (
	AttrMediaID  = "data-media-id"
	AttrCaption  = "data-caption"
	AttrVideoURL = "data-video-url"
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// ParseFragment parses editor markup as the children of a <body> element and
// returns the detached top-level nodes in document order.
func ParseFragment(markup string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(markup), bodyContext)
}

// Render renders nodes back into markup.
func Render(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// Attr returns the value of attribute key on n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets attribute key on n, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// IsEmpty reports whether n has neither visible text nor nested markup.
// A lone <br> does not count as markup.
func IsEmpty(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return isBlank(n.Data)
	case html.ElementNode:
		return isBlank(textContent(n)) && !hasNestedMarkup(n)
	default:
		return true
	}
}

func outerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode || c.Type == html.ElementNode {
			sb.WriteString(textContent(c))
		}
	}
	return sb.String()
}

func hasNestedMarkup(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom != atom.Br {
			return true
		}
		if c.Type == html.ElementNode && hasNestedMarkup(c) {
			return true
		}
	}
	return false
}

func isBlank(s string) bool {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " ")) == ""
}

// significantChildren returns the element children of n, skipping blank text
// and comments. ok is false when n also has non-blank text of its own.
func significantChildren(n *html.Node) (children []*html.Node, ok bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			children = append(children, c)
		case html.TextNode:
			if !isBlank(c.Data) {
				return nil, false
			}
		}
	}
	return children, true
}
