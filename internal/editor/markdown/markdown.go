// Package markdown imports Markdown text into editor markup.
package markdown

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
)

var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithXHTML(),
	),
)

// videoHosts are hosts whose links become video blocks when they stand
// alone in a paragraph.
var videoHosts = []string{
	"youtube.com",
	"youtu.be",
	"vimeo.com",
	"dailymotion.com",
}

// ToMarkup converts Markdown into editor markup. Raw HTML in the source is
// omitted. A paragraph that holds only a link to a known video host is
// marked as a video placeholder.
func ToMarkup(src string) (string, error) {
	text := strings.TrimSpace(src)
	if text == "" {
		return "", nil
	}

	var out bytes.Buffer
	if err := engine.Convert([]byte(text), &out); err != nil {
		return "", err
	}

	nodes, err := codec.ParseFragment(out.String())
	if err != nil {
		return "", err
	}
	kept := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.CommentNode || (n.Type == html.TextNode && strings.TrimSpace(n.Data) == "") {
			continue
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			if link := soleVideoLink(n); link != "" {
				codec.SetAttr(n, codec.AttrVideoURL, link)
			}
		}
		kept = append(kept, n)
	}
	return codec.Render(kept)
}

func soleVideoLink(p *html.Node) string {
	var link *html.Node
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && c.DataAtom == atom.A && link == nil:
			link = c
		default:
			return ""
		}
	}
	if link == nil {
		return ""
	}
	href := strings.TrimSpace(codec.Attr(link, "href"))
	if isVideoURL(href) {
		return href
	}
	return ""
}

func isVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
