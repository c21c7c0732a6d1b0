/*
index.go - Holiday index with a one-shot load lifecycle

PURPOSE:
  Holds the loaded holiday list and answers proximity questions:
  exact match, one-day adjacency, and "upcoming within N days".

LIFECYCLE:
  unloaded --Load()--> loaded

  Load() is the only initialization entry point. While a fetch is in
  flight, further Load() callers wait for that same fetch instead of
  starting another one. Once loaded, Load() returns the cached list.

  A failed fetch leaves the index empty and unloaded. Queries then answer
  "no match", and a later Load() may try again. Failures are logged and
  reported to the optional observer, never returned.

ORDER:
  The list keeps source order. UpcomingWithin does not sort: callers that
  need chronological order must sort themselves.

SEE ALSO:
  - source.go: document sources (file, HTTP)
  - store/sqldb: SQL-backed source
*/
package holiday

import (
	"context"
	"log"
	"sync"

	"github.com/warp/attendance-engine/calendar"
)

// Holiday is a single named calendar day.
type Holiday struct {
	Date calendar.Date `json:"date"`
	Name string        `json:"name"`
}

// Source fetches the holiday list.
type Source interface {
	Fetch(ctx context.Context) ([]Holiday, error)
}

// LoadObserver is told about every completed fetch attempt.
type LoadObserver interface {
	ObserveHolidayLoad(count int, err error)
}

// =============================================================================
// INDEX
// =============================================================================

// Index is safe for concurrent use.
type Index struct {
	source   Source
	logger   *log.Logger
	observer LoadObserver

	mu       sync.RWMutex
	loaded   bool
	inflight chan struct{}
	holidays []Holiday
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for load failures.
func WithLogger(l *log.Logger) Option { return func(i *Index) { i.logger = l } }

// WithObserver registers a load observer (e.g. metrics).
func WithObserver(o LoadObserver) Option { return func(i *Index) { i.observer = o } }

// NewIndex creates an unloaded index over source.
func NewIndex(source Source, opts ...Option) *Index {
	idx := &Index{source: source, logger: log.Default()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// NewStatic returns an index that is already loaded with list.
func NewStatic(list []Holiday) *Index {
	return &Index{
		logger:   log.Default(),
		loaded:   true,
		holidays: append([]Holiday(nil), list...),
	}
}

// Load fetches the holiday list once and returns it. It never fails: on any
// source error the index stays empty.
func (i *Index) Load(ctx context.Context) []Holiday {
	i.mu.Lock()
	if i.loaded {
		defer i.mu.Unlock()
		return i.copyLocked()
	}
	if wait := i.inflight; wait != nil {
		i.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil
		}
		i.mu.RLock()
		defer i.mu.RUnlock()
		return i.copyLocked()
	}
	done := make(chan struct{})
	i.inflight = done
	i.mu.Unlock()

	list, err := i.fetch(ctx)

	i.mu.Lock()
	defer i.mu.Unlock()
	i.inflight = nil
	close(done)

	if i.observer != nil {
		i.observer.ObserveHolidayLoad(len(list), err)
	}
	if err != nil {
		i.logger.Printf("holiday: load failed, continuing without holidays: %v", err)
		return nil
	}
	i.holidays = list
	i.loaded = true
	return i.copyLocked()
}

func (i *Index) fetch(ctx context.Context) ([]Holiday, error) {
	if i.source == nil {
		return nil, ErrNoSource
	}
	list, err := i.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Holiday, 0, len(list))
	for _, h := range list {
		if !h.Date.Valid() {
			return nil, &InvalidRecordError{Name: h.Name}
		}
		out = append(out, h)
	}
	return out, nil
}

// Loaded reports whether a fetch has succeeded.
func (i *Index) Loaded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.loaded
}

// All returns a copy of the stored list.
func (i *Index) All() []Holiday {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.copyLocked()
}

func (i *Index) copyLocked() []Holiday {
	return append([]Holiday(nil), i.holidays...)
}

// =============================================================================
// QUERIES
// =============================================================================

// ExactMatch returns the holiday on date, if any.
func (i *Index) ExactMatch(date calendar.Date) (Holiday, bool) {
	if !date.Valid() {
		return Holiday{}, false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, h := range i.holidays {
		if h.Date.Equal(date) {
			return h, true
		}
	}
	return Holiday{}, false
}

// AdjacentMatch returns the first holiday, in list order, exactly one day
// before or after date.
func (i *Index) AdjacentMatch(date calendar.Date) (Holiday, bool) {
	if !date.Valid() {
		return Holiday{}, false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, h := range i.holidays {
		if diff := calendar.DaysBetween(date, h.Date); diff == 1 || diff == -1 {
			return h, true
		}
	}
	return Holiday{}, false
}

// UpcomingWithin returns holidays in [from, from+days], in stored order.
func (i *Index) UpcomingWithin(days int, from calendar.Date) []Holiday {
	if !from.Valid() || days < 0 {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []Holiday
	for _, h := range i.holidays {
		if diff := calendar.DaysBetween(from, h.Date); diff >= 0 && diff <= days {
			out = append(out, h)
		}
	}
	return out
}
