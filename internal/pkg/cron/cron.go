package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobRunning  = errors.New("job is already running")
)

// JobStatus represents the last known state of a job.
type JobStatus string

const (
	StatusIdle      JobStatus = "idle"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Job defines a periodic background task. Fn returns a short summary of
// what the run did, kept as the job's message.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Fn          func(ctx context.Context) (string, error)
}

type jobState struct {
	Job

	mu           sync.Mutex
	status       JobStatus
	message      string
	runs         int
	lastRunAt    *time.Time
	lastDuration time.Duration
	nextRunAt    time.Time
}

// ListItem is the serializable representation of a job for the API.
type ListItem struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Interval     string     `json:"interval"`
	Status       JobStatus  `json:"status"`
	Message      string     `json:"message,omitempty"`
	Runs         int        `json:"runs"`
	NextDate     time.Time  `json:"nextDate"`
	LastRunAt    *time.Time `json:"lastRunAt,omitempty"`
	LastDuration string     `json:"lastDuration,omitempty"`
}

// Scheduler runs a collection of named interval jobs. A job never overlaps
// with itself.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
	log  *zap.Logger
	now  func() time.Time
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		jobs: make(map[string]*jobState),
		log:  log,
		now:  time.Now,
	}
}

// Register adds a job to the scheduler. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{
		Job:       job,
		status:    StatusIdle,
		nextRunAt: s.now().Add(job.Interval),
	}
}

// Start launches all registered jobs in background goroutines. They stop
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		go s.runLoop(ctx, js)
	}
}

func (s *Scheduler) runLoop(ctx context.Context, js *jobState) {
	ticker := time.NewTicker(js.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.execute(ctx, js); err != nil && !errors.Is(err, ErrJobRunning) {
				s.log.Warn("job failed", zap.String("job", js.Name), zap.Error(err))
			}
			js.mu.Lock()
			js.nextRunAt = s.now().Add(js.Interval)
			js.mu.Unlock()
		}
	}
}

// execute runs js once. A panic in the job is recorded as a failure.
func (s *Scheduler) execute(ctx context.Context, js *jobState) (err error) {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		return ErrJobRunning
	}
	js.status = StatusRunning
	js.mu.Unlock()

	start := s.now()
	var summary string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
		js.mu.Lock()
		defer js.mu.Unlock()
		js.runs++
		js.lastRunAt = &start
		js.lastDuration = s.now().Sub(start)
		if err != nil {
			js.status = StatusFailed
			js.message = err.Error()
			return
		}
		js.status = StatusSucceeded
		js.message = summary
	}()

	summary, err = js.Fn(ctx)
	return err
}

// Run triggers a job by name and waits for it to finish. The job's own
// failure is recorded in its state, not returned.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotFound, name)
	}
	if err := s.execute(ctx, js); errors.Is(err, ErrJobRunning) {
		return fmt.Errorf("%w: %q", ErrJobRunning, name)
	}
	return nil
}

func (js *jobState) item() ListItem {
	js.mu.Lock()
	defer js.mu.Unlock()
	item := ListItem{
		Name:        js.Name,
		Description: js.Description,
		Interval:    js.Interval.String(),
		Status:      js.status,
		Message:     js.message,
		Runs:        js.runs,
		NextDate:    js.nextRunAt,
		LastRunAt:   js.lastRunAt,
	}
	if js.lastRunAt != nil {
		item.LastDuration = js.lastDuration.String()
	}
	return item
}

// Get returns the summary of one job.
func (s *Scheduler) Get(name string) (ListItem, bool) {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return ListItem{}, false
	}
	return js.item(), true
}

// List returns a summary of all registered jobs ordered by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ListItem, 0, len(s.jobs))
	for _, js := range s.jobs {
		items = append(items, js.item())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
