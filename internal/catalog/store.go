package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"rokcal/internal/expand"
	"rokcal/internal/index"
	appLog "rokcal/internal/log"
	"rokcal/internal/metrics"
	"rokcal/internal/model"
)

// ErrSuperseded is returned by a Refresh whose result was discarded
// because a newer Refresh started while it was in flight.
var ErrSuperseded = errors.New("catalog: refresh superseded")

// Loader produces the current template list.
type Loader interface {
	Load(ctx context.Context) ([]*model.Template, error)
}

// StaticLoader serves the built-in catalog, or a YAML catalog when Path is
// set.
type StaticLoader struct {
	Path      string
	Location  *time.Location
	WeekStart time.Weekday
	Now       func() time.Time
}

func (l StaticLoader) Load(_ context.Context) ([]*model.Template, error) {
	loc := l.Location
	if loc == nil {
		loc = time.Local
	}
	if l.Path != "" {
		return LoadFile(l.Path, loc)
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return Builtin(now().In(loc), l.WeekStart), nil
}

// RemoteLoader fetches the remote catalog and adapts it to templates.
type RemoteLoader struct {
	Fetcher  *Fetcher
	URL      string
	Location *time.Location
}

func (l RemoteLoader) Load(ctx context.Context) ([]*model.Template, error) {
	events, err := l.Fetcher.Fetch(ctx, l.URL)
	if err != nil {
		return nil, err
	}
	return FromRemote(events, l.Location), nil
}

// StoreOptions configures expansion for a Store.
type StoreOptions struct {
	Location *time.Location
	// HorizonMonths is the repetition count for repeating single-run
	// templates.
	HorizonMonths int
	// HorizonYears bounds expansion at today + N years.
	HorizonYears   int
	MaxPerTemplate int
	Now            func() time.Time
	Metrics        *metrics.Manager
}

// Snapshot is an immutable view of one successful refresh.
type Snapshot struct {
	Templates  []*model.Template
	Index      *index.Index
	HorizonEnd time.Time
	Truncated  []string
	Warnings   []expand.Warning
	UpdatedAt  time.Time

	byID map[string]*model.Template
}

// Template looks up a template by id.
func (s *Snapshot) Template(id string) (*model.Template, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.byID[id]
	return t, ok
}

// Status describes the loading state for the UI.
type Status struct {
	Loading     bool
	Err         error
	UpdatedAt   time.Time
	Templates   int
	Occurrences int
}

// Store owns the template list and its occurrence index. Refreshes replace
// the snapshot wholesale; readers never see a partially built index.
//
// Only one refresh is in flight at a time: starting a new one cancels the
// previous fetch and discards its result.
type Store struct {
	loader Loader
	opts   StoreOptions

	mu      sync.RWMutex
	snap    *Snapshot
	loading bool
	lastErr error
	gen     uint64
	cancel  context.CancelFunc
}

func NewStore(loader Loader, opts StoreOptions) *Store {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonMonths <= 0 {
		opts.HorizonMonths = expand.DefaultRepetitions
	}
	if opts.HorizonYears <= 0 {
		opts.HorizonYears = 1
	}
	return &Store{loader: loader, opts: opts}
}

// Refresh reloads templates and rebuilds the index. A failed refresh keeps
// the previous snapshot and records the error for Status.
func (s *Store) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.loading = true
	s.mu.Unlock()

	started := time.Now()
	templates, err := s.loader.Load(ctx)
	s.opts.Metrics.ObserveLoad(time.Since(started))

	var snap *Snapshot
	if err == nil {
		snap, err = s.build(templates)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.opts.Metrics.RecordRefresh("superseded")
		appLog.Debug("catalog refresh superseded", "generation", gen)
		return ErrSuperseded
	}
	s.cancel = nil
	s.loading = false

	if err != nil {
		s.lastErr = err
		s.opts.Metrics.RecordRefresh("error")
		appLog.Error("catalog refresh failed", err, "generation", gen)
		return err
	}

	s.snap = snap
	s.lastErr = nil
	s.opts.Metrics.RecordRefresh("ok")
	appLog.Info("catalog refreshed",
		"generation", gen,
		"templates", len(snap.Templates),
		"occurrences", snap.Index.Len(),
		"horizon_end", snap.HorizonEnd.Format(time.RFC3339),
	)
	return nil
}

func (s *Store) build(templates []*model.Template) (*Snapshot, error) {
	now := s.opts.Now().In(s.opts.Location)
	horizon := expand.YearsAhead(now, s.opts.HorizonYears)
	if m := expand.MonthsAhead(now, s.opts.HorizonMonths); m.After(horizon) {
		horizon = m
	}

	started := time.Now()
	res, err := expand.Expand(templates, expand.Options{
		HorizonEnd:     horizon,
		Repetitions:    s.opts.HorizonMonths,
		MaxPerTemplate: s.opts.MaxPerTemplate,
	})
	if err != nil {
		return nil, err
	}
	idx := index.New(res.Occurrences)
	s.opts.Metrics.ObserveExpand(time.Since(started), len(templates), idx.Len(), len(res.Warnings), len(res.Truncated))

	byID := make(map[string]*model.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return &Snapshot{
		Templates:  templates,
		Index:      idx,
		HorizonEnd: horizon,
		Truncated:  res.Truncated,
		Warnings:   res.Warnings,
		UpdatedAt:  now,
		byID:       byID,
	}, nil
}

// Snapshot returns the latest successful snapshot, or nil before the first
// one.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{Loading: s.loading, Err: s.lastErr}
	if s.snap != nil {
		st.UpdatedAt = s.snap.UpdatedAt
		st.Templates = len(s.snap.Templates)
		st.Occurrences = s.snap.Index.Len()
	}
	return st
}
