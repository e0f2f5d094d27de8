package media

import (
	"sync"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the in-edit markup of one editing session.
type Document struct {
	mu     sync.Mutex
	markup string
}

func NewDocument(markup string) *Document {
	return &Document{markup: markup}
}

func (d *Document) Markup() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markup
}

// Append adds a fragment at the end of the document.
func (d *Document) Append(fragment string) {
	d.mu.Lock()
	d.markup += fragment
	d.mu.Unlock()
}

// Update replaces the markup with fn's result. On error the document is left
// unchanged.
func (d *Document) Update(fn func(markup string) (string, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := fn(d.markup)
	if err != nil {
		return err
	}
	d.markup = next
	return nil
}

// substituteRef points every image using ref at the server copy.
func substituteRef(markup, ref, url, mediaID string) (string, error) {
	nodes, err := codec.ParseFragment(markup)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		walk(n, func(el *html.Node) {
			if el.DataAtom == atom.Img && codec.Attr(el, "src") == ref {
				codec.SetAttr(el, "src", url)
				codec.SetAttr(el, codec.AttrMediaID, mediaID)
			}
		})
	}
	return codec.Render(nodes)
}

// removeRef deletes every image using ref. A wrapper left without content is
// removed as well.
func removeRef(markup, ref string) (string, error) {
	nodes, err := codec.ParseFragment(markup)
	if err != nil {
		return "", err
	}
	kept := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img && codec.Attr(n, "src") == ref {
			continue
		}
		var doomed []*html.Node
		walk(n, func(el *html.Node) {
			if el != n && el.DataAtom == atom.Img && codec.Attr(el, "src") == ref {
				doomed = append(doomed, el)
			}
		})
		for _, el := range doomed {
			el.Parent.RemoveChild(el)
		}
		if len(doomed) > 0 && codec.IsEmpty(n) {
			continue
		}
		kept = append(kept, n)
	}
	return codec.Render(kept)
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, fn)
		c = next
	}
}
