// Package article orchestrates article edits and workflow transitions
// against the backend.
package article

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/editor/workflow"
	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/modules/tagging"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
)

const (
	// CacheNamespace holds dashboard listings.
	CacheNamespace = "articles"
	// PublicNamespace holds reader-site pages.
	PublicNamespace = "public"

	defaultMaxTags = 8

	TagSourceBackend = "backend"
	TagSourceAI      = "ai"
)

var (
	ErrEmptyContent    = errors.New("article has no content")
	ErrNotEditable     = errors.New("article is locked in its current status")
	ErrNotPersisted    = errors.New("article has not been saved yet")
	ErrForbiddenAction = errors.New("action not allowed for this user")
)

// Backend is the slice of the backend client articles need.
type Backend interface {
	ListArticles(ctx context.Context, f models.ArticleFilter) (*models.Page[models.Article], error)
	GetArticle(ctx context.Context, id int64) (*models.Article, error)
	CreateArticle(ctx context.Context, p models.ArticlePayload) (*models.Article, error)
	UpdateArticle(ctx context.Context, id int64, p models.ArticlePayload) (*models.Article, error)
	Submit(ctx context.Context, id int64) (*models.Article, error)
	Approve(ctx context.Context, id int64) (*models.Article, error)
	Reject(ctx context.Context, id int64, motif string) (*models.Article, error)
	Publish(ctx context.Context, id int64) (*models.Article, error)
	PublishAdvanced(ctx context.Context, id int64, cfg models.PublicationConfig) (*models.Article, error)
	Archive(ctx context.Context, id int64) (*models.Article, error)
	Delete(ctx context.Context, id int64) error
	AutoTags(ctx context.Context, id int64) ([]string, error)
}

type Service struct {
	be           Backend
	cache        *cache.Cache
	tagger       tagging.Tagger
	maxTags      int
	mediaBaseURL string
	log          *zap.Logger
}

type Option func(*Service)

// WithTagger enables the language model fallback for tag suggestions.
func WithTagger(t tagging.Tagger, max int) Option {
	return func(s *Service) {
		s.tagger = t
		if max > 0 {
			s.maxTags = max
		}
	}
}

func WithMediaBaseURL(base string) Option {
	return func(s *Service) { s.mediaBaseURL = base }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(be Backend, c *cache.Cache, opts ...Option) *Service {
	s := &Service{be: be, cache: c, maxTags: defaultMaxTags, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a page of articles. Writers asking for their own articles
// get them filtered by author.
func (s *Service) List(ctx context.Context, user models.User, f models.ArticleFilter) (*models.Page[models.Article], error) {
	key := fmt.Sprintf("u%d:s=%s:r=%d:a=%d:q=%s:p=%d:n=%d",
		user.ID, f.Status, f.RubriqueID, f.AuthorID, strings.ToLower(f.Query), f.Page, f.Size)
	return cache.GetOrFetch(ctx, s.cache, CacheNamespace, key, func(ctx context.Context) (*models.Page[models.Article], error) {
		return s.be.ListArticles(ctx, f)
	})
}

// Get loads an article with its editor markup and the actions user may take.
func (s *Service) Get(ctx context.Context, user models.User, id int64) (*View, error) {
	a, err := s.be.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return s.view(a, user), nil
}

func (s *Service) view(a *models.Article, user models.User) *View {
	actions := workflow.Offered(a.Status, user.Role)
	if actions == nil {
		actions = []workflow.Action{}
	}
	return &View{
		Article:  a,
		Markup:   codec.Deserialize(a.Blocks, codec.WithMediaBaseURL(s.mediaBaseURL)),
		Editable: workflow.Editable(a.Status) && canEdit(a, user),
		Actions:  actions,
	}
}

func canEdit(a *models.Article, user models.User) bool {
	return user.IsAdmin() || a.AuthorID == 0 || a.AuthorID == user.ID
}

// Save creates or updates the article once, then submits it once when
// asked. A failed submission leaves the saved article in place and is
// reported in the result.
func (s *Service) Save(ctx context.Context, user models.User, in Input) (*SaveResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	blocks := in.Blocks
	if blocks == nil && strings.TrimSpace(in.Markup) != "" {
		var err error
		blocks, err = codec.Serialize(in.Markup)
		if err != nil {
			return nil, err
		}
	}
	if err := checkMediaRefs(blocks); err != nil {
		return nil, err
	}
	if blocks == nil {
		blocks = []models.ContentBlock{}
	}
	if len(blocks) == 0 && !in.ConfirmEmpty {
		return nil, ErrEmptyContent
	}

	payload := models.ArticlePayload{
		Title:        in.Title,
		Description:  in.Description,
		RubriqueID:   in.RubriqueID,
		AuthorID:     user.ID,
		CoverMediaID: in.CoverMediaID,
		Region:       in.Region,
		Status:       models.StatusDraft,
		Blocks:       blocks,
	}

	var saved *models.Article
	if in.ID > 0 {
		current, err := s.be.GetArticle(ctx, in.ID)
		if err != nil {
			return nil, fmt.Errorf("load article %d: %w", in.ID, err)
		}
		if !canEdit(current, user) {
			return nil, ErrForbiddenAction
		}
		if !workflow.Editable(current.Status) {
			return nil, fmt.Errorf("%w: %s", ErrNotEditable, current.Status)
		}
		if current.AuthorID > 0 {
			payload.AuthorID = current.AuthorID
		}
		payload.Status = current.Status
		saved, err = s.be.UpdateArticle(ctx, in.ID, payload)
		if err != nil {
			return nil, fmt.Errorf("update article %d: %w", in.ID, err)
		}
		if saved == nil || !saved.IsPersisted() {
			saved = current
		}
	} else {
		var err error
		saved, err = s.be.CreateArticle(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("create article: %w", err)
		}
	}
	if saved.Status == "" {
		saved.Status = payload.Status
	}
	s.invalidate(ctx)

	result := &SaveResult{}
	if in.Submit {
		if err := s.submit(ctx, saved); err != nil {
			s.log.Warn("submit after save failed", zap.Int64("article_id", saved.ID), zap.Error(err))
			result.SubmitError = err.Error()
		} else {
			result.Submitted = true
		}
	}

	fresh, err := s.be.GetArticle(ctx, saved.ID)
	if err != nil {
		s.log.Warn("refetch after save failed", zap.Int64("article_id", saved.ID), zap.Error(err))
		fresh = saved
	}
	result.View = *s.view(fresh, user)
	return result, nil
}

func (s *Service) submit(ctx context.Context, a *models.Article) error {
	if _, err := workflow.Check(a.Status, workflow.ActionSubmit, workflow.Input{AuthorID: a.AuthorID}); err != nil {
		return err
	}
	if _, err := s.be.Submit(ctx, a.ID); err != nil {
		return fmt.Errorf("submit article %d: %w", a.ID, err)
	}
	s.invalidate(ctx)
	return nil
}

// Transition applies action to the article after refetching its current
// status. The result is the refetched article, or nil once it is deleted.
func (s *Service) Transition(ctx context.Context, user models.User, id int64, action workflow.Action, in TransitionInput) (*View, error) {
	current, err := s.be.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", id, err)
	}
	if !offered(current.Status, user.Role, action) {
		if _, err := workflow.Lookup(current.Status, action); err != nil {
			return nil, err
		}
		return nil, ErrForbiddenAction
	}
	if action == workflow.ActionSubmit && !canEdit(current, user) {
		return nil, ErrForbiddenAction
	}

	t, err := workflow.Check(current.Status, action, workflow.Input{
		AuthorID:    current.AuthorID,
		Reason:      in.Reason,
		Confirmed:   in.Confirm,
		Publication: in.Publication,
	})
	if err != nil {
		return nil, err
	}

	if err := s.apply(ctx, id, action, in); err != nil {
		s.invalidate(ctx)
		return nil, err
	}
	s.invalidate(ctx)
	s.log.Info("article transition",
		zap.Int64("article_id", id),
		zap.String("action", string(action)),
		zap.String("from", string(t.From)),
		zap.String("to", string(t.To)),
		zap.Int64("user_id", user.ID))

	if t.Terminal {
		return nil, nil
	}
	fresh, err := s.be.GetArticle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refetch article %d: %w", id, err)
	}
	return s.view(fresh, user), nil
}

func offered(status models.Status, role models.Role, action workflow.Action) bool {
	for _, a := range workflow.Offered(status, role) {
		if a == action {
			return true
		}
	}
	return false
}

func (s *Service) apply(ctx context.Context, id int64, action workflow.Action, in TransitionInput) error {
	var err error
	switch action {
	case workflow.ActionSubmit:
		_, err = s.be.Submit(ctx, id)
	case workflow.ActionApprove:
		_, err = s.be.Approve(ctx, id)
	case workflow.ActionReject:
		_, err = s.be.Reject(ctx, id, strings.TrimSpace(in.Reason))
	case workflow.ActionPublish, workflow.ActionRepublish:
		if in.Publication != nil && !in.Publication.IsDefault() {
			_, err = s.be.PublishAdvanced(ctx, id, *in.Publication)
		} else {
			_, err = s.be.Publish(ctx, id)
		}
	case workflow.ActionArchive:
		_, err = s.be.Archive(ctx, id)
	case workflow.ActionDelete:
		err = s.be.Delete(ctx, id)
	default:
		return fmt.Errorf("%w: %s", workflow.ErrUnknownAction, action)
	}
	if err != nil {
		return fmt.Errorf("%s article %d: %w", action, id, err)
	}
	return nil
}

// AutoTags suggests tags for a saved article. The backend is asked first;
// the language model answers when the backend fails or has nothing.
func (s *Service) AutoTags(ctx context.Context, id int64) (*TagsResult, error) {
	if id <= 0 {
		return nil, ErrNotPersisted
	}
	tags, err := s.be.AutoTags(ctx, id)
	if err == nil && len(tags) > 0 {
		return &TagsResult{Tags: tags, Source: TagSourceBackend}, nil
	}
	if s.tagger == nil {
		if err != nil {
			return nil, fmt.Errorf("auto-tag article %d: %w", id, err)
		}
		return &TagsResult{Tags: []string{}, Source: TagSourceBackend}, nil
	}
	if err != nil {
		s.log.Warn("backend auto-tag failed, asking model", zap.Int64("article_id", id), zap.Error(err))
	}

	a, getErr := s.be.GetArticle(ctx, id)
	if getErr != nil {
		return nil, fmt.Errorf("load article %d: %w", id, getErr)
	}
	suggested, sErr := s.tagger.Suggest(ctx, tagging.Document{
		Title:       a.Title,
		Description: a.Description,
		Markup:      codec.Deserialize(a.Blocks),
	}, s.maxTags)
	if sErr != nil {
		if err != nil {
			return nil, fmt.Errorf("auto-tag article %d: %w", id, err)
		}
		return nil, fmt.Errorf("suggest tags for article %d: %w", id, sErr)
	}
	return &TagsResult{Tags: suggested, Source: TagSourceAI}, nil
}

func (s *Service) invalidate(ctx context.Context) {
	for _, ns := range []string{CacheNamespace, PublicNamespace} {
		if err := s.cache.Invalidate(ctx, ns); err != nil {
			s.log.Warn("invalidate cache", zap.String("namespace", ns), zap.Error(err))
		}
	}
}
