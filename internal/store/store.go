// Package store owns the authoritative in-memory note collection and its
// persistence. Every mutation synchronously writes the full collection to
// the blob store before returning; a write failure surfaces as a
// PERSISTENCE error without rolling back the in-memory change.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/kv"
	"github.com/hanwin/jot/internal/note"
)

// ConfirmFunc is an injected yes/no gate for destructive operations.
// It receives a human-readable prompt and returns whether to proceed.
type ConfirmFunc func(prompt string) bool

// ConfirmAll is a ConfirmFunc that approves every prompt. Useful for
// surfaces that gate confirmation elsewhere (e.g. --yes flags).
func ConfirmAll(string) bool { return true }

// Store holds the note collection and delegates persistence to the
// key-value adapter.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	notes []note.Note
}

// Open loads the collection from the blob store. An absent or unparsable
// blob yields an empty collection; corrupt local state never prevents
// startup.
func Open(db *sql.DB) (*Store, error) {
	s := &Store{db: db}

	blob, ok, err := kv.Get(db, kv.KeyNotes)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.notes = []note.Note{}
		return s, nil
	}

	var records []note.Record
	if err := json.Unmarshal(blob, &records); err != nil {
		// Stored blob present but unparsable: recover silently with an
		// empty collection.
		s.notes = []note.Note{}
		return s, nil
	}

	now := time.Now()
	s.notes = make([]note.Note, len(records))
	for i, r := range records {
		s.notes[i] = note.FromRecord(r, now)
	}
	return s, nil
}

// Notes returns a snapshot copy of the collection in insertion order.
func (s *Store) Notes() []note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]note.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Len returns the number of notes in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// Get returns the note with the given ID, if present.
func (s *Store) Get(id string) (note.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.notes[i], true
	}
	return note.Note{}, false
}

// Create appends a new note built from the draft. Malformed optional
// fields are coerced, never rejected. The returned note carries its
// assigned ID and timestamps even when persistence fails.
func (s *Store) Create(d note.Draft) (note.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := note.New(d, time.Now())
	s.notes = append(s.notes, n)
	return n, s.persist()
}

// Update overwrites title, body, and tags of the note with the given ID,
// refreshing UpdatedAt. CreatedAt and Pinned are untouched. An unknown ID
// is a silent no-op.
func (s *Store) Update(id, title, body string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	n := &s.notes[i]
	n.Title = note.NormalizeTitle(title)
	n.Body = body
	n.Tags = note.NormalizeTags(tags)
	n.UpdatedAt = s.touch(n.CreatedAt)
	return s.persist()
}

// TogglePin flips the pin flag and refreshes UpdatedAt. No confirmation
// is required. Returns NOT_FOUND for an unknown ID.
func (s *Store) TogglePin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return errors.NewNotFound(id)
	}

	n := &s.notes[i]
	n.Pinned = !n.Pinned
	n.UpdatedAt = s.touch(n.CreatedAt)
	return s.persist()
}

// Delete removes the note with the given ID after the confirmation gate
// approves. Returns whether a note was removed. A declined confirmation
// or unknown ID leaves the collection unchanged.
func (s *Store) Delete(id string, confirm ConfirmFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	if confirm == nil || !confirm("Delete this note?") {
		return false, nil
	}

	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	return true, s.persist()
}

// ClearAll replaces the collection with an empty sequence after the
// confirmation gate approves. Returns whether the clear happened.
func (s *Store) ClearAll(confirm ConfirmFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if confirm == nil || !confirm("Clear ALL notes? This cannot be undone.") {
		return false, nil
	}

	s.notes = []note.Note{}
	return true, s.persist()
}

// ImportMerge appends notes parsed from a JSON blob whose root must be an
// array of note records. Records get the same defaulting as Create;
// timestamps are taken from the record when present. The import is
// all-or-nothing: an invalid root aborts with IMPORT_INVALID and zero
// mutation. Returns the number of notes appended.
func (s *Store) ImportMerge(blob []byte) (int, error) {
	var root any
	if err := json.Unmarshal(blob, &root); err != nil {
		return 0, errors.NewImportInvalid("import data is not valid JSON")
	}
	if _, ok := root.([]any); !ok {
		return 0, errors.NewImportInvalid("import data must be an array of notes")
	}

	// Re-decode through the record shape. Missing fields default exactly
	// like a fresh create.
	var records []note.Record
	if err := json.Unmarshal(blob, &records); err != nil {
		return 0, errors.NewImportInvalid("import data contains malformed note records")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, r := range records {
		// Imported records never reuse an ID already in the collection;
		// import is additive, not a sync.
		r.ID = ""
		s.notes = append(s.notes, note.FromRecord(r, now))
	}
	return len(records), s.persist()
}

// ExportAll serializes the full collection as pretty-printed JSON.
// Pure read, no side effect.
func (s *Store) ExportAll() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(note.ToRecords(s.notes), "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// indexOf returns the position of the note with the given ID, or -1.
// Caller must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// touch returns the new UpdatedAt value, clamped so it never precedes
// CreatedAt even under clock adjustments.
func (s *Store) touch(createdAt time.Time) time.Time {
	now := note.Clock(time.Now())
	if now.Before(createdAt) {
		return createdAt
	}
	return now
}

// persist writes the full collection to the blob store. Caller must hold
// s.mu. The in-memory mutation is kept even when the write fails.
func (s *Store) persist() error {
	data, err := json.Marshal(note.ToRecords(s.notes))
	if err != nil {
		return errors.NewInternal(err)
	}
	return kv.Set(s.db, kv.KeyNotes, data)
}
