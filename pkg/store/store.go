// Package store holds the canonical record sequence of the loaded dataset and
// the derived search subset.
//
// Every change to the canonical sequence (bulk load, delete, edit) bumps
// Version. Every search bumps SearchVersion. Consumers compare these counters
// instead of comparing slices to decide whether the plot must be rebuilt.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

var (
	// ErrUnknownIndex means no record carries the given stable index.
	ErrUnknownIndex = errors.New("unknown record index")
	// ErrNoDataset means an operation needs a loaded dataset.
	ErrNoDataset = errors.New("no dataset loaded")
)

// Options configures a Store.
type Options struct {
	// CaseInsensitive makes Search ignore letter case.
	CaseInsensitive bool
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	records []model.Record
	loaded  bool
	version uint64

	searchText    string
	searching     bool
	searchResults []model.Record
	searchVersion uint64

	opts Options
}

// New creates a store holding records. A nil slice leaves the store unloaded.
func New(records []model.Record, opts Options) *Store {
	s := &Store{opts: opts}
	if records != nil {
		s.Load(records)
	}
	return s
}

// Load replaces the canonical sequence. The active search, if any, is re-run
// against the new records.
func (s *Store) Load(records []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = cloneRecords(records)
	s.loaded = true
	s.version++
	if s.searching {
		s.searchResults = s.match(s.searchText)
	}
	debug.Log("store: loaded %d records (version %d)", len(s.records), s.version)
}

// Loaded reports whether a dataset has been loaded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version is bumped on every change to the canonical sequence.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SearchVersion is bumped on every Search call.
func (s *Store) SearchVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchVersion
}

// Records returns a copy of the canonical sequence.
func (s *Store) Records() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Len returns the number of canonical records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Lookup returns the record with the given stable index.
func (s *Store) Lookup(index int) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pos := s.position(index); pos >= 0 {
		return s.records[pos], true
	}
	return model.Record{}, false
}

// Search sets the search subset to records whose instruction, input or output
// contains text. Empty text leaves search mode.
func (s *Store) Search(text string) []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchVersion++
	s.searchText = text
	if text == "" {
		s.searching = false
		s.searchResults = nil
		debug.Log("store: search cleared")
		return nil
	}
	s.searching = true
	s.searchResults = s.match(text)
	debug.Log("store: search %q matched %d of %d records", text, len(s.searchResults), len(s.records))
	return cloneRecords(s.searchResults)
}

// SearchText returns the active search text.
func (s *Store) SearchText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchText
}

// IsSearching reports whether a non-empty search is active.
func (s *Store) IsSearching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searching
}

// SearchResults returns the current search subset.
func (s *Store) SearchResults() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.searchResults)
}

// Active returns the records currently shown: the search subset while
// searching, the canonical sequence otherwise.
func (s *Store) Active() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.searching {
		return cloneRecords(s.searchResults)
	}
	return cloneRecords(s.records)
}

// Snapshot returns everything a projection needs under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		All:           cloneRecords(s.records),
		Subset:        cloneRecords(s.searchResults),
		Searching:     s.searching,
		Version:       s.version,
		SearchVersion: s.searchVersion,
	}
}

// Snapshot is a consistent copy of the store state.
type Snapshot struct {
	All           []model.Record
	Subset        []model.Record
	Searching     bool
	Version       uint64
	SearchVersion uint64
}

// Delete removes the records with the given stable indices. Positions of the
// survivors are compacted; their stable indices are kept and never reused.
// If any index is unknown nothing is deleted.
func (s *Store) Delete(indices ...int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNoDataset
	}
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if s.position(idx) < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownIndex, idx)
		}
		drop[idx] = true
	}
	if len(drop) == 0 {
		return nil
	}

	kept := make([]model.Record, 0, len(s.records)-len(drop))
	for _, r := range s.records {
		if !drop[r.Index] {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.version++
	if s.searching {
		s.searchResults = s.match(s.searchText)
	}
	debug.Log("store: deleted %d records, %d remain (version %d)", len(drop), len(s.records), s.version)
	return nil
}

// Edit merges p into the record with the given stable index.
func (s *Store) Edit(index int, p model.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return ErrNoDataset
	}
	pos := s.position(index)
	if pos < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}
	if p.Empty() {
		return nil
	}
	// Replace the backing array so earlier snapshots stay untouched.
	records := cloneRecords(s.records)
	records[pos] = records[pos].Apply(p)
	s.records = records
	s.version++
	if s.searching {
		s.searchResults = s.match(s.searchText)
	}
	debug.Log("store: edited record %d (version %d)", index, s.version)
	return nil
}

// position returns the slice position of the stable index, or -1.
// Callers hold the lock.
func (s *Store) position(index int) int {
	for i := range s.records {
		if s.records[i].Index == index {
			return i
		}
	}
	return -1
}

func (s *Store) match(text string) []model.Record {
	out := make([]model.Record, 0)
	for _, r := range s.records {
		if r.Contains(text, s.opts.CaseInsensitive) {
			out = append(out, r)
		}
	}
	return out
}

func cloneRecords(records []model.Record) []model.Record {
	if records == nil {
		return nil
	}
	out := make([]model.Record, len(records))
	copy(out, records)
	return out
}
