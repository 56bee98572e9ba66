package memory

import (
	"context"
	"sort"
	"sync"

	"travelcore/pkg/db"
)

// Index derives a unique key from a row; rows that return "" are not indexed.
type Index[T any] func(row T) string

// staged holds one transaction's writes to a table. base records the
// committed revision each row had when the transaction first wrote it; rows
// without a base were inserted by the transaction.
type staged[T any] struct {
	rows map[string]T
	base map[string]uint64
}

// Table is a map of rows by id with optional unique indexes. Rows are stored
// and returned by value. Inside a transaction, reads see the committed rows
// overlaid with the transaction's own staged writes; outside one, only
// committed rows are visible.
type Table[T any] struct {
	mu      sync.RWMutex
	rows    map[string]T
	revs    map[string]uint64
	pending map[*journal]*staged[T]
	unique  []Index[T]
	ordered func(a, b T) bool
}

func NewTable[T any](unique ...Index[T]) *Table[T] {
	return &Table[T]{
		rows:    make(map[string]T),
		revs:    make(map[string]uint64),
		pending: make(map[*journal]*staged[T]),
		unique:  unique,
	}
}

// OrderBy sets the order Find returns rows in.
func (t *Table[T]) OrderBy(less func(a, b T) bool) *Table[T] {
	t.ordered = less
	return t
}

func (t *Table[T]) lockRows()   { t.mu.Lock() }
func (t *Table[T]) unlockRows() { t.mu.Unlock() }

// lookup and each read the view of j (committed rows when j is nil).
// Callers hold mu.
func (t *Table[T]) lookup(j *journal, id string) (T, bool) {
	if s := t.pending[j]; s != nil {
		if row, ok := s.rows[id]; ok {
			return row, true
		}
	}
	row, ok := t.rows[id]
	return row, ok
}

func (t *Table[T]) each(j *journal, fn func(id string, row T)) {
	s := t.pending[j]
	for id, row := range t.rows {
		if s != nil {
			if _, overridden := s.rows[id]; overridden {
				continue
			}
		}
		fn(id, row)
	}
	if s != nil {
		for id, row := range s.rows {
			fn(id, row)
		}
	}
}

func (t *Table[T]) violates(j *journal, id string, row T) bool {
	violated := false
	for _, index := range t.unique {
		key := index(row)
		if key == "" {
			continue
		}
		t.each(j, func(otherID string, other T) {
			if otherID != id && index(other) == key {
				violated = true
			}
		})
	}
	return violated
}

func (t *Table[T]) stage(j *journal, id string, row T) {
	s := t.pending[j]
	if s == nil {
		s = &staged[T]{rows: make(map[string]T), base: make(map[string]uint64)}
		t.pending[j] = s
	}
	if _, already := s.rows[id]; !already {
		if _, committed := t.rows[id]; committed {
			s.base[id] = t.revs[id]
		}
	}
	s.rows[id] = row
}

// write stores row directly when there is no transaction, or stages it on j.
// Callers hold mu.
func (t *Table[T]) write(j *journal, id string, row T) {
	if j == nil {
		t.rows[id] = row
		t.revs[id]++
		return
	}
	t.stage(j, id, row)
}

// begin takes the locks a write needs. Direct writes also take commitMu so
// they never land between a commit's validation and its apply.
func (t *Table[T]) begin(ctx context.Context) (*journal, func()) {
	j := journalFrom(ctx)
	if j == nil {
		commitMu.Lock()
		t.mu.Lock()
		return nil, func() {
			t.mu.Unlock()
			commitMu.Unlock()
		}
	}
	t.mu.Lock()
	return j, func() {
		t.mu.Unlock()
		j.touch(t)
	}
}

func (t *Table[T]) validate(j *journal) error {
	s := t.pending[j]
	if s == nil {
		return nil
	}
	for id := range s.rows {
		if base, updated := s.base[id]; updated {
			if t.revs[id] != base {
				return db.ErrVersionConflict
			}
		} else if _, exists := t.rows[id]; exists {
			return db.ErrDuplicate
		}
	}
	for _, index := range t.unique {
		seen := make(map[string]struct{})
		dup := false
		t.each(j, func(_ string, row T) {
			key := index(row)
			if key == "" {
				return
			}
			if _, ok := seen[key]; ok {
				dup = true
			}
			seen[key] = struct{}{}
		})
		if dup {
			return db.ErrDuplicate
		}
	}
	return nil
}

func (t *Table[T]) apply(j *journal) {
	s := t.pending[j]
	if s == nil {
		return
	}
	for id, row := range s.rows {
		t.rows[id] = row
		t.revs[id]++
	}
	delete(t.pending, j)
}

func (t *Table[T]) discard(j *journal) {
	delete(t.pending, j)
}

func (t *Table[T]) Insert(ctx context.Context, id string, row T) error {
	j, done := t.begin(ctx)
	defer done()

	if _, exists := t.lookup(j, id); exists || t.violates(j, id, row) {
		return db.ErrDuplicate
	}
	t.write(j, id, row)
	return nil
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.lookup(journalFrom(ctx), id)
	if !ok {
		var zero T
		return zero, db.ErrNotFound
	}
	return row, nil
}

// Update applies mutate to a copy of the row and stores it when mutate
// returns nil. It is the compare-and-swap point: mutate sees the current row
// under the table lock. Inside a transaction the result is staged, and the
// commit fails if another writer committed the row first.
func (t *Table[T]) Update(ctx context.Context, id string, mutate func(row *T) error) (T, error) {
	j, done := t.begin(ctx)
	defer done()

	before, ok := t.lookup(j, id)
	if !ok {
		var zero T
		return zero, db.ErrNotFound
	}

	after := before
	if err := mutate(&after); err != nil {
		var zero T
		return zero, err
	}
	if t.violates(j, id, after) {
		var zero T
		return zero, db.ErrDuplicate
	}
	t.write(j, id, after)
	return after, nil
}

// Upsert replaces the row matching the first unique index or inserts a new one
// under id. It returns the id the row is stored under.
func (t *Table[T]) Upsert(ctx context.Context, id string, row T, merge func(existing *T, incoming T)) (string, T) {
	j, done := t.begin(ctx)
	defer done()

	if len(t.unique) > 0 {
		key := t.unique[0](row)
		matchID, found := "", false
		var match T
		t.each(j, func(existingID string, existing T) {
			if !found && t.unique[0](existing) == key {
				matchID, match, found = existingID, existing, true
			}
		})
		if found {
			merge(&match, row)
			t.write(j, matchID, match)
			return matchID, match
		}
	}

	t.write(j, id, row)
	return id, row
}

func (t *Table[T]) Find(ctx context.Context, match func(row T) bool) []T {
	t.mu.RLock()
	var out []T
	t.each(journalFrom(ctx), func(_ string, row T) {
		if match == nil || match(row) {
			out = append(out, row)
		}
	})
	t.mu.RUnlock()

	if t.ordered != nil {
		sort.Slice(out, func(i, j int) bool { return t.ordered(out[i], out[j]) })
	}
	return out
}

// Len counts committed rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
