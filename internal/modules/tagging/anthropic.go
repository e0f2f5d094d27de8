package tagging

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/config"
)

const anthropicMaxTokens = 256

type anthropicTagger struct {
	client anthropic.Client
	model  string
	log    *zap.Logger
}

func newAnthropic(cfg config.TaggingConfig, log *zap.Logger) *anthropicTagger {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	return &anthropicTagger{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
		log:    log.Named("tagging.anthropic"),
	}
}

func (t *anthropicTagger) Suggest(ctx context.Context, doc Document, max int) ([]string, error) {
	msg, err := t.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: anthropicMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(doc, max))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic message: %w", err)
	}

	var reply strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
			reply.WriteByte('\n')
		}
	}
	tags := ParseTags(reply.String(), max)
	t.log.Debug("tags suggested", zap.String("model", t.model), zap.Int("count", len(tags)))
	if len(tags) == 0 {
		return nil, ErrNoSuggestion
	}
	return tags, nil
}
