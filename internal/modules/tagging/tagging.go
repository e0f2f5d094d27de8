// Package tagging suggests article tags with a language model when the
// backend has no suggestion to offer.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/todaysafrica/newsroom/internal/config"
)

const (
	maxTagRunes   = 40
	maxInputRunes = 6000
)

var ErrNoSuggestion = errors.New("no tag suggestion")

var listMarker = regexp.MustCompile(`^(?:[-*•]+|\d+[.)])\s*`)

// Document is the article text a Tagger reads.
type Document struct {
	Title       string
	Description string
	// Markup is the article body as editor markup.
	Markup string
}

type Tagger interface {
	Suggest(ctx context.Context, doc Document, max int) ([]string, error)
}

// New returns the Tagger configured by cfg, or nil when tagging is disabled.
func New(cfg config.TaggingConfig, log *zap.Logger) (Tagger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Provider {
	case "":
		return nil, nil
	case config.TaggingOpenAI:
		return newOpenAI(cfg, log), nil
	case config.TaggingAnthropic:
		return newAnthropic(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown tagging provider %q", cfg.Provider)
	}
}

const systemPrompt = "Tu es documentaliste pour le journal Today's Africa. " +
	"Propose des mots-clés courts et précis pour classer l'article fourni: " +
	"pays, personnalités, organisations, thèmes. " +
	"Réponds uniquement par une liste de mots-clés séparés par des virgules, sans phrase."

func userPrompt(doc Document, max int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre maximal de mots-clés: %d\n\n", max)
	fmt.Fprintf(&b, "Titre: %s\n", strings.TrimSpace(doc.Title))
	if d := strings.TrimSpace(doc.Description); d != "" {
		fmt.Fprintf(&b, "Chapeau: %s\n", d)
	}
	if text := truncateRunes(PlainText(doc.Markup), maxInputRunes); text != "" {
		fmt.Fprintf(&b, "\n%s\n", text)
	}
	return b.String()
}

// ParseTags turns a model reply into at most max distinct tags. Tags are
// split on commas, semicolons and newlines, stripped of list markers and
// quotes, and deduplicated case-insensitively.
func ParseTags(reply string, max int) []string {
	fields := strings.FieldsFunc(reply, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := listMarker.ReplaceAllString(strings.TrimSpace(f), "")
		tag = strings.Trim(tag, "\"'«»# \t")
		if tag == "" || utf8.RuneCountInString(tag) > maxTagRunes {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
		if max > 0 && len(tags) == max {
			break
		}
	}
	return tags
}

// PlainText returns the visible text of markup with blocks separated by
// newlines.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "h1", "h2", "h3", "h4", "li", "blockquote", "figcaption":
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken, html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
