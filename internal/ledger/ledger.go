// Package ledger tracks which recipes have been processed across runs.
//
// The ledger is a single JSON file persisted atomically after every
// state transition, so a crash mid-run still leaves the true last-known
// state on disk for the next invocation.
package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"recipecast/internal/recipes"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// Ledger is the durable mapping of recipe id to attempt history.
type Ledger struct {
	path string
	lock *fileLock
	data *ledgerData
	mu   sync.RWMutex
}

// ledgerData is the top-level JSON structure.
type ledgerData struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"` // keyed by decimal recipe id
}

// Open loads the ledger at the given path, creating an empty one if
// the file does not exist (first run). The ledger file is locked for
// the lifetime of the process; callers must Close().
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		lock: newFileLock(path),
	}

	if err := l.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := l.load(); err != nil {
		l.lock.Unlock()
		return nil, err
	}

	return l, nil
}

// load reads the JSON file into memory. Creates empty data if the file
// doesn't exist; a file that exists but cannot be decoded fails with
// ErrCorrupt rather than silently starting fresh.
func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.data = &ledgerData{
				Version:   schemaVersion,
				UpdatedAt: time.Now(),
				Entries:   make(map[string]*Entry),
			}
			// Save immediately to catch permission errors early
			return l.save()
		}
		return err
	}

	l.data = &ledgerData{}
	if err := json.Unmarshal(data, l.data); err != nil {
		return ErrCorrupt
	}
	if l.data.Entries == nil {
		l.data.Entries = make(map[string]*Entry)
	}

	return nil
}

// save persists the data to disk atomically. Any failure is a
// *PersistError and must abort the run.
func (l *Ledger) save() error {
	l.data.UpdatedAt = time.Now()

	writer, err := newAtomicWriter(l.path)
	if err != nil {
		return &PersistError{Path: l.path, Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(l.data); err != nil {
		writer.Abort()
		return &PersistError{Path: l.path, Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &PersistError{Path: l.path, Err: err}
	}

	return nil
}

// Close releases the ledger lock.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lock.Unlock()
}

// Get returns a copy of the entry for the given recipe id.
func (l *Ledger) Get(id int) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.data.Entries[key(id)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// IsComplete reports whether the recipe has a completed entry.
func (l *Ledger) IsComplete(id int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.data.Entries[key(id)]
	return ok && e.Status == StatusCompleted
}

// MarkInProgress records that an attempt on the recipe has started and
// persists before returning. It does not touch the attempt count; the
// attempt is counted when its outcome is recorded.
func (l *Ledger) MarkInProgress(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(id)
	e.Status = StatusInProgress
	e.Timestamp = time.Now()
	return l.save()
}

// RecordAttempt records the outcome of an attempt: increments the
// attempt count, overwrites status, timestamp and last error, and
// synchronously persists before returning.
func (l *Ledger) RecordAttempt(id int, status Status, attemptErr error) error {
	return l.record(id, status, attemptErr, "")
}

// RecordCompleted records a successful publish together with the
// remote video id.
func (l *Ledger) RecordCompleted(id int, videoID string) error {
	return l.record(id, StatusCompleted, nil, videoID)
}

func (l *Ledger) record(id int, status Status, attemptErr error, videoID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(id)
	e.Status = status
	e.Timestamp = time.Now()
	e.AttemptCount++
	e.LastError = ""
	if attemptErr != nil {
		e.LastError = attemptErr.Error()
	}
	if videoID != "" {
		e.VideoID = videoID
	}

	return l.save()
}

// entry returns the live entry for id, creating it on first attempt.
// Caller must hold the write lock.
func (l *Ledger) entry(id int) *Entry {
	k := key(id)
	e, ok := l.data.Entries[k]
	if !ok {
		e = &Entry{RecipeID: id}
		l.data.Entries[k] = e
	}
	return e
}

// NextPending returns the first recipe (by input ordering) whose id
// has no completed entry, or false if every recipe is complete.
func (l *Ledger) NextPending(all []recipes.Recipe) (recipes.Recipe, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, r := range all {
		if e, ok := l.data.Entries[key(r.ID)]; !ok || e.Status != StatusCompleted {
			return r, true
		}
	}
	return recipes.Recipe{}, false
}

// Pending returns all recipes without a completed entry, preserving
// input order.
func (l *Ledger) Pending(all []recipes.Recipe) []recipes.Recipe {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var pending []recipes.Recipe
	for _, r := range all {
		if e, ok := l.data.Entries[key(r.ID)]; !ok || e.Status != StatusCompleted {
			pending = append(pending, r)
		}
	}
	return pending
}

// FailedEntries returns the entries whose last attempt failed, sorted
// by recipe id.
func (l *Ledger) FailedEntries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var failed []Entry
	for _, e := range l.data.Entries {
		if e.Status == StatusFailed {
			failed = append(failed, *e)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].RecipeID < failed[j].RecipeID
	})
	return failed
}

// InProgressEntries returns entries stuck in in_progress, sorted by
// recipe id. These indicate a crash mid-attempt.
func (l *Ledger) InProgressEntries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stuck []Entry
	for _, e := range l.data.Entries {
		if e.Status == StatusInProgress {
			stuck = append(stuck, *e)
		}
	}
	sort.Slice(stuck, func(i, j int) bool {
		return stuck[i].RecipeID < stuck[j].RecipeID
	})
	return stuck
}

// Summary aggregates ledger state against the current catalog.
// Pending counts recipes never attempted; failed and in_progress
// recipes are counted in their own buckets even though they remain
// eligible for selection.
type Summary struct {
	Total      int
	Completed  int
	Failed     int
	InProgress int
	Pending    int
	// Orphaned counts ledger entries whose recipe id is absent from
	// the catalog; they are reported but never selected.
	Orphaned int
}

// Summarize counts completed/failed/pending recipes for the catalog,
// plus ledger entries orphaned by catalog changes.
func (l *Ledger) Summarize(all []recipes.Recipe) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{Total: len(all)}
	known := make(map[string]bool, len(all))

	for _, r := range all {
		k := key(r.ID)
		known[k] = true
		e, ok := l.data.Entries[k]
		if !ok {
			s.Pending++
			continue
		}
		switch e.Status {
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		case StatusInProgress:
			s.InProgress++
		}
	}

	for k := range l.data.Entries {
		if !known[k] {
			s.Orphaned++
		}
	}

	return s
}

func key(id int) string {
	return strconv.Itoa(id)
}
