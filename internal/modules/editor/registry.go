// Package editor hosts server-side editing sessions: the in-edit document,
// its pending uploads and the save that turns it into content blocks.
package editor

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/todaysafrica/newsroom/internal/editor/media"
)

var (
	ErrSessionNotFound = errors.New("editing session not found")
	ErrNotOwner        = errors.New("editing session belongs to another user")
)

// Session is one open editor.
type Session struct {
	ID       string
	OwnerID  int64
	Doc      *media.Document
	Resolver *media.Resolver

	// saving serialises saves so a new article is created once.
	saving sync.Mutex

	mu        sync.Mutex
	articleID int64
	lastUsed  time.Time
}

func (s *Session) ArticleID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.articleID
}

func (s *Session) setArticleID(id int64) {
	s.mu.Lock()
	s.articleID = id
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Registry holds the open sessions of this process.
type Registry struct {
	uploader media.Uploader
	limits   media.Limits
	idleTTL  time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(uploader media.Uploader, limits media.Limits, idleTTL time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		uploader: uploader,
		limits:   limits,
		idleTTL:  idleTTL,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for owner over markup.
func (r *Registry) Open(ownerID, articleID int64, markup string) *Session {
	doc := media.NewDocument(markup)
	s := &Session{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Doc:       doc,
		articleID: articleID,
		lastUsed:  r.now(),
		Resolver: media.NewResolver(doc, r.uploader,
			media.WithLimits(r.limits),
			media.WithLogger(r.log.Named("media"))),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	r.log.Info("editing session opened", zap.String("session", s.ID), zap.Int64("owner", ownerID), zap.Int64("article_id", articleID))
	return s
}

// Get returns the session id if ownerID owns it.
func (r *Registry) Get(id string, ownerID int64) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	s.touch(r.now())
	return s, nil
}

// Close detaches and forgets the session.
func (r *Registry) Close(id string, ownerID int64) error {
	s, err := r.Get(id, ownerID)
	if err != nil {
		return err
	}
	r.remove(s)
	return nil
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	r.mu.Unlock()
	s.Resolver.Close()
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the idle TTL and returns how
// many were closed. Sessions with uploads still pending are kept.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*Session
	for _, s := range r.sessions {
		if s.idleSince().Before(cutoff) && len(s.Resolver.Pending()) == 0 {
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })
	for _, s := range stale {
		r.remove(s)
		r.log.Info("editing session expired", zap.String("session", s.ID))
	}
	return len(stale)
}

// CloseAll closes every session and returns how many there were.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()
	for _, s := range all {
		r.remove(s)
	}
	return len(all)
}
