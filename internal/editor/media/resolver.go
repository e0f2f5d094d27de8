package media

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/todaysafrica/newsroom/internal/editor/codec"
	"github.com/todaysafrica/newsroom/internal/models"
	"go.uber.org/zap"
)

var (
	ErrUnknownRef = errors.New("unknown preview reference")
	ErrClosed     = errors.New("editing session is closed")
)

const defaultUploadTimeout = 2 * time.Minute

// Uploader stores a validated file and returns the server record.
type Uploader interface {
	Upload(ctx context.Context, f File) (*models.Media, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, f File) (*models.Media, error)

func (fn UploaderFunc) Upload(ctx context.Context, f File) (*models.Media, error) {
	return fn(ctx, f)
}

// State of a tracked upload.
type State string

const (
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateFailed   State = "failed"
)

// Upload is a snapshot of one tracked upload.
type Upload struct {
	Ref   string        `json:"ref"`
	Name  string        `json:"name"`
	State State         `json:"state"`
	Media *models.Media `json:"media,omitempty"`
	Err   error         `json:"-"`
}

type preview struct {
	data        []byte
	contentType string
}

// Resolver ties locally previewed files to their server-assigned media.
// Every substitution is keyed by the preview reference, so concurrent
// uploads never clobber one another.
type Resolver struct {
	doc      *Document
	uploader Uploader
	limits   Limits
	timeout  time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	uploads  map[string]*Upload
	previews map[string]preview
	closed   bool
	wg       sync.WaitGroup
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLimits overrides the size and type limits applied before upload.
func WithLimits(l Limits) Option { return func(r *Resolver) { r.limits = l } }

// WithUploadTimeout bounds each upload. Non-positive values keep the default.
func WithUploadTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger for upload outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a Resolver that substitutes settled uploads into doc.
func NewResolver(doc *Document, uploader Uploader, opts ...Option) *Resolver {
	r := &Resolver{
		doc:      doc,
		uploader: uploader,
		limits:   DefaultLimits(),
		timeout:  defaultUploadTimeout,
		logger:   zap.NewNop(),
		uploads:  make(map[string]*Upload),
		previews: make(map[string]preview),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert validates f, appends a preview image to the document and starts the
// upload. The returned reference is the preview image's src until the upload
// settles.
func (r *Resolver) Insert(ctx context.Context, f File, alt string) (string, error) {
	return r.track(ctx, f, func(ref string) {
		r.doc.Append(previewMarkup(ref, alt))
	})
}

// Track validates f and starts the upload without touching the document;
// the caller places an image referencing the returned ref itself.
func (r *Resolver) Track(ctx context.Context, f File) (string, error) {
	return r.track(ctx, f, nil)
}

func (r *Resolver) track(ctx context.Context, f File, place func(ref string)) (string, error) {
	contentType, err := Validate(f, r.limits)
	if err != nil {
		return "", err
	}
	f.ContentType = contentType
	ref := codec.PreviewScheme + uuid.NewString()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}
	r.uploads[ref] = &Upload{Ref: ref, Name: f.Name, State: StatePending}
	r.previews[ref] = preview{data: f.Data, contentType: contentType}
	r.wg.Add(1)
	r.mu.Unlock()

	if place != nil {
		place(ref)
	}
	go r.upload(context.WithoutCancel(ctx), ref, f)
	return ref, nil
}

func (r *Resolver) upload(ctx context.Context, ref string, f File) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m, err := r.uploader.Upload(ctx, f)
	if err == nil && (m == nil || m.ID <= 0 || m.AccessURL == "") {
		err = fmt.Errorf("%w: incomplete upload response", ErrStorage)
	}
	if err != nil {
		r.fail(ref, classify(err))
		return
	}
	r.resolve(ref, m)
}

func (r *Resolver) resolve(ref string, m *models.Media) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		err := r.doc.Update(func(markup string) (string, error) {
			return substituteRef(markup, ref, m.AccessURL, strconv.FormatInt(m.ID, 10))
		})
		if err != nil {
			r.logger.Error("substitute uploaded media", zap.String("ref", ref), zap.Error(err))
		}
	}
	if up, ok := r.uploads[ref]; ok {
		up.State = StateResolved
		up.Media = m
	}
	delete(r.previews, ref)
	r.logger.Info("media resolved", zap.String("ref", ref), zap.Int64("media_id", m.ID))
}

func (r *Resolver) fail(ref string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		err := r.doc.Update(func(markup string) (string, error) {
			return removeRef(markup, ref)
		})
		if err != nil {
			r.logger.Error("roll back failed upload", zap.String("ref", ref), zap.Error(err))
		}
	}
	if up, ok := r.uploads[ref]; ok {
		up.State = StateFailed
		up.Err = cause
	}
	delete(r.previews, ref)
	r.logger.Warn("media upload failed", zap.String("ref", ref), zap.Error(cause))
}

// Replace swaps the whole document for markup. References to uploads that
// already settled are rewritten the same way they were when the upload
// finished, so a client copy still holding a preview ref stays consistent.
func (r *Resolver) Replace(markup string) error {
	return r.apply(func(string) string { return markup })
}

// AppendMarkup adds fragment at the end of the document, rewriting settled
// references like Replace.
func (r *Resolver) AppendMarkup(fragment string) error {
	return r.apply(func(cur string) string { return cur + fragment })
}

func (r *Resolver) apply(next func(cur string) string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Update(func(cur string) (string, error) {
		return r.reconcile(next(cur))
	})
}

// reconcile maps every settled ref in markup to its outcome. r.mu must be
// held.
func (r *Resolver) reconcile(markup string) (string, error) {
	var err error
	for ref, up := range r.uploads {
		if !strings.Contains(markup, ref) {
			continue
		}
		switch up.State {
		case StateResolved:
			markup, err = substituteRef(markup, ref, up.Media.AccessURL, strconv.FormatInt(up.Media.ID, 10))
		case StateFailed:
			markup, err = removeRef(markup, ref)
		}
		if err != nil {
			return "", err
		}
	}
	return markup, nil
}

// classify keeps the distinct upload failures and folds anything else into
// ErrStorage.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrTooLarge), errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrStorage):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

// Status returns a snapshot of the upload behind ref.
func (r *Resolver) Status(ref string) (Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	up, ok := r.uploads[ref]
	if !ok {
		return Upload{}, ErrUnknownRef
	}
	return *up, nil
}

// Uploads returns snapshots of every tracked upload ordered by reference.
func (r *Resolver) Uploads() []Upload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Upload, 0, len(r.uploads))
	for _, up := range r.uploads {
		out = append(out, *up)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out
}

// Pending lists references whose upload has not settled.
func (r *Resolver) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var refs []string
	for ref, up := range r.uploads {
		if up.State == StatePending {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}

// Preview returns the local bytes for ref while its upload is pending.
func (r *Resolver) Preview(ref string) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.previews[ref]
	return p.data, p.contentType, ok
}

// Wait blocks until every started upload has settled or ctx is done.
func (r *Resolver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the document. Uploads still in flight settle without
// mutating it, and previews are released.
func (r *Resolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.previews = make(map[string]preview)
}

func previewMarkup(ref, alt string) string {
	markup := `<p><img src="` + html.EscapeString(ref) + `"`
	if alt != "" {
		markup += ` alt="` + html.EscapeString(alt) + `"`
	}
	return markup + `/></p>`
}
