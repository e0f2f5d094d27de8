package tagging

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/config"
)

type openAITagger struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func newOpenAI(cfg config.TaggingConfig, log *zap.Logger) *openAITagger {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := normalizeOpenAIBaseURL(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &openAITagger{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		log:    log.Named("tagging.openai"),
	}
}

func (t *openAITagger) Suggest(ctx context.Context, doc Document, max int) ([]string, error) {
	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(t.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(doc, max)),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoSuggestion
	}
	tags := ParseTags(resp.Choices[0].Message.Content, max)
	t.log.Debug("tags suggested", zap.String("model", t.model), zap.Int("count", len(tags)))
	if len(tags) == 0 {
		return nil, ErrNoSuggestion
	}
	return tags, nil
}

// normalizeOpenAIBaseURL appends /v1 to endpoints given without a version.
func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/") + "/"
}
