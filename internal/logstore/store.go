// Package logstore owns the ordered collection of timestamped notes for the
// current video and persists it after every change.
package logstore

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/kv"
	vlog "github.com/hpungsan/vodnote/internal/log"
)

// Store is the single owner of the note collection. The collection is kept
// in non-decreasing timestamp order; notes sharing a timestamp keep the
// order they were added in.
type Store struct {
	mu      sync.Mutex
	entries []entry.Entry
	issued  map[string]struct{}

	kv      kv.Store
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock replaces the time source used for ID timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open builds a Store and hydrates it from the logs record in backend.
// Missing or unreadable data yields an empty collection.
func Open(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		issued:  make(map[string]struct{}),
		kv:      backend,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		logger:  vlog.WithComponent("logstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hydrate()
	return s
}

func (s *Store) hydrate() {
	data, err := s.kv.Get(kv.KeyLogs)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn().Err(err).Str(vlog.FieldKey, kv.KeyLogs).Msg("load logs failed, starting empty")
		}
		return
	}

	loaded, err := entry.Decode(data)
	if err != nil {
		s.logger.Warn().Err(err).Str(vlog.FieldKey, kv.KeyLogs).Msg("stored logs unreadable, starting empty")
		return
	}

	reminted := 0
	for i := range loaded {
		id := loaded[i].ID
		if _, dup := s.issued[id]; id == "" || dup {
			loaded[i].ID = s.newID()
			reminted++
			continue
		}
		s.issued[id] = struct{}{}
	}
	entry.SortByTimestamp(loaded)
	s.entries = loaded

	ev := s.logger.Debug().Int(vlog.FieldCount, len(loaded))
	if reminted > 0 {
		ev = ev.Int("reminted", reminted)
	}
	ev.Msg("logs hydrated")
}

// Add records a note at timestamp. Empty text (after trimming) is ignored
// and reported with ok=false. Negative timestamps are stored as 0.
func (s *Store) Add(timestamp float64, text string) (entry.Entry, bool) {
	text = entry.NormalizeText(text)
	if text == "" {
		return entry.Entry{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry.Entry{
		ID:        s.newID(),
		Timestamp: entry.NormalizeTimestamp(timestamp),
		Text:      text,
	}
	s.entries = append(s.entries, e)
	entry.SortByTimestamp(s.entries)
	s.save()

	return e, true
}

// Update replaces the text of the note with id. The note keeps its
// timestamp and position. Unknown ids and empty text are ignored.
func (s *Store) Update(id, text string) bool {
	text = entry.NormalizeText(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries[i].Text = text
	s.save()
	return true
}

// Delete removes the note with id. Deleting an unknown id changes nothing
// and reports false.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.save()
	return true
}

// BulkImport appends one note per draft with fresh ids, then sorts and
// saves once. Drafts with empty text are skipped. The created entries are
// returned in draft order.
func (s *Store) BulkImport(drafts []entry.Draft) []entry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]entry.Entry, 0, len(drafts))
	for _, d := range drafts {
		text := entry.NormalizeText(d.Text)
		if text == "" {
			continue
		}
		created = append(created, entry.Entry{
			ID:        s.newID(),
			Timestamp: entry.NormalizeTimestamp(d.Timestamp),
			Text:      text,
		})
	}
	if len(created) == 0 {
		return created
	}

	s.entries = append(s.entries, created...)
	entry.SortByTimestamp(s.entries)
	s.save()

	return created
}

// Clear removes every note.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.save()
}

// Snapshot returns a copy of the ordered collection.
func (s *Store) Snapshot() []entry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entry.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the note with id.
func (s *Store) Get(id string) (entry.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return entry.Entry{}, false
	}
	return s.entries[i], true
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// save writes the whole collection. Failures are logged only: the in-memory
// mutation stands either way. Caller holds mu.
func (s *Store) save() {
	data, err := entry.Encode(s.entries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode logs failed")
		return
	}
	if err := s.kv.Put(kv.KeyLogs, data); err != nil {
		s.logger.Warn().Err(err).Str(vlog.FieldKey, kv.KeyLogs).Int(vlog.FieldCount, len(s.entries)).Msg("save logs failed")
	}
}

// newID mints an id that has not been seen in this process, including ids
// that were hydrated or already deleted. Caller holds mu (or is hydrating).
func (s *Store) newID() string {
	for {
		id, err := ulid.New(ulid.Timestamp(s.now()), s.entropy)
		if err != nil {
			// monotonic entropy exhausted within one millisecond
			id = ulid.MustNew(ulid.Timestamp(s.now()), rand.Reader)
		}
		str := id.String()
		if _, taken := s.issued[str]; taken {
			continue
		}
		s.issued[str] = struct{}{}
		return str
	}
}
