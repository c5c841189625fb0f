package store

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/kv"
	"github.com/hanwin/jot/internal/note"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	db, err := kv.Init(tmpDir)
	if err != nil {
		t.Fatalf("kv.Init failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := Open(db)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s, tmpDir
}

func reopen(t *testing.T, baseDir string) *Store {
	t.Helper()
	db, err := kv.Init(baseDir)
	if err != nil {
		t.Fatalf("kv.Init (reopen) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := Open(db)
	if err != nil {
		t.Fatalf("Open (reopen) failed: %v", err)
	}
	return s
}

// TestFullWorkflow exercises the complete note lifecycle:
// create → update → pin → persist/reload → delete → clear → import → export
func TestFullWorkflow(t *testing.T) {
	s, baseDir := openTestStore(t)

	// 1. Create
	n, err := s.Create(note.Draft{
		Title: "Team Meeting",
		Body:  "prepare the agenda",
		Tags:  []string{"work", "meetings"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)
	require.Equal(t, 1, s.Len())

	// 2. Update
	require.NoError(t, s.Update(n.ID, "Team Meeting", "agenda done", []string{"work"}))
	got, ok := s.Get(n.ID)
	require.True(t, ok)
	require.Equal(t, "agenda done", got.Body)
	require.Equal(t, []string{"work"}, got.Tags)
	require.Equal(t, n.CreatedAt, got.CreatedAt)

	// 3. Pin
	require.NoError(t, s.TogglePin(n.ID))
	got, _ = s.Get(n.ID)
	require.True(t, got.Pinned)

	// 4. Persist then reload: field-for-field equality
	reloaded := reopen(t, baseDir)
	require.Equal(t, s.Notes(), reloaded.Notes())

	// 5. Delete with approving gate
	deleted, err := s.Delete(n.ID, ConfirmAll)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, 0, s.Len())

	// 6. Import two notes, then export → clear → import round trip
	imported, err := s.ImportMerge([]byte(`[
		{"title": "one", "tags": ["a"]},
		{"title": "two", "pinned": true}
	]`))
	require.NoError(t, err)
	require.Equal(t, 2, imported)

	exported, err := s.ExportAll()
	require.NoError(t, err)

	cleared, err := s.ClearAll(ConfirmAll)
	require.NoError(t, err)
	require.True(t, cleared)
	require.Equal(t, 0, s.Len())

	reimported, err := s.ImportMerge(exported)
	require.NoError(t, err)
	require.Equal(t, 2, reimported)

	notes := s.Notes()
	require.Len(t, notes, 2)
	require.Equal(t, "one", notes[0].Title)
	require.Equal(t, []string{"a"}, notes[0].Tags)
	require.Equal(t, "two", notes[1].Title)
	require.True(t, notes[1].Pinned)
}

func TestCreate_CoercesFields(t *testing.T) {
	s, _ := openTestStore(t)

	n, err := s.Create(note.Draft{
		Title: "   ",
		Tags:  []string{"work", "Work", " personal ", "work", ""},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if n.Title != note.DefaultTitle {
		t.Errorf("Title = %q, want %q", n.Title, note.DefaultTitle)
	}
	want := []string{"work", "Work", "personal"}
	if !reflect.DeepEqual(n.Tags, want) {
		t.Errorf("Tags = %v, want %v", n.Tags, want)
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		t.Error("UpdatedAt precedes CreatedAt")
	}
}

func TestUpdate_UnknownID_NoOp(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Create(note.Draft{Title: "keep"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := s.Notes()

	if err := s.Update("01JUNKJUNKJUNKJUNKJUNKJUNK", "x", "y", nil); err != nil {
		t.Fatalf("Update of unknown ID should be a silent no-op, got: %v", err)
	}
	if !reflect.DeepEqual(before, s.Notes()) {
		t.Error("collection changed by no-op update")
	}
}

func TestTogglePin_OnlyPinAndUpdatedAt(t *testing.T) {
	s, _ := openTestStore(t)

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		n, err := s.Create(note.Draft{Title: title, Body: "body " + title, Tags: []string{title}})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, n.ID)
	}
	before := s.Notes()

	if err := s.TogglePin(ids[1]); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	after := s.Notes()

	for i := range after {
		if i == 1 {
			if !after[i].Pinned {
				t.Error("target note not pinned")
			}
			if after[i].UpdatedAt.Before(before[i].UpdatedAt) {
				t.Error("UpdatedAt moved backwards")
			}
			// Everything else untouched
			if after[i].Title != before[i].Title || after[i].Body != before[i].Body ||
				!reflect.DeepEqual(after[i].Tags, before[i].Tags) ||
				!after[i].CreatedAt.Equal(before[i].CreatedAt) {
				t.Error("TogglePin changed a field other than Pinned/UpdatedAt")
			}
			continue
		}
		if !reflect.DeepEqual(after[i], before[i]) {
			t.Errorf("note %d changed by TogglePin of note 1", i)
		}
	}
}

func TestTogglePin_UnknownID(t *testing.T) {
	s, _ := openTestStore(t)
	err := s.TogglePin("01JUNKJUNKJUNKJUNKJUNKJUNK")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("TogglePin should return NOT_FOUND, got: %v", err)
	}
}

func TestDelete_Declined(t *testing.T) {
	s, _ := openTestStore(t)
	n, err := s.Create(note.Draft{Title: "survivor"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := s.Notes()

	decline := func(string) bool { return false }
	deleted, err := s.Delete(n.ID, decline)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("deleted = true with declined confirmation")
	}
	if !reflect.DeepEqual(before, s.Notes()) {
		t.Error("collection changed despite declined confirmation")
	}
}

func TestDelete_UnknownID(t *testing.T) {
	s, _ := openTestStore(t)
	deleted, err := s.Delete("01JUNKJUNKJUNKJUNKJUNKJUNK", ConfirmAll)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted {
		t.Error("deleted = true for unknown ID")
	}
}

func TestClearAll_Declined(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Create(note.Draft{Title: "keep"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cleared, err := s.ClearAll(func(string) bool { return false })
	if err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if cleared {
		t.Error("cleared = true with declined confirmation")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestImportMerge_NonArrayRoot(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Create(note.Draft{Title: "existing"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := s.Notes()

	cases := []string{
		`{"not": "an array"}`,
		`"scalar"`,
		`42`,
		`not json at all`,
	}
	for _, blob := range cases {
		count, err := s.ImportMerge([]byte(blob))
		if !errors.Is(err, errors.ErrImportInvalid) {
			t.Errorf("ImportMerge(%q) error = %v, want IMPORT_INVALID", blob, err)
		}
		if count != 0 {
			t.Errorf("ImportMerge(%q) count = %d, want 0", blob, count)
		}
	}

	if !reflect.DeepEqual(before, s.Notes()) {
		t.Error("collection changed by rejected import")
	}
}

func TestImportMerge_Additive(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Create(note.Draft{Title: "existing"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	count, err := s.ImportMerge([]byte(`[{"title": "imported", "createdAt": "2024-01-02T03:04:05Z", "updatedAt": "2024-01-03T00:00:00Z"}]`))
	if err != nil {
		t.Fatalf("ImportMerge failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2 (import is additive)", s.Len())
	}

	notes := s.Notes()
	imported := notes[1]
	if imported.Title != "imported" {
		t.Errorf("Title = %q", imported.Title)
	}
	if got := imported.CreatedAt.Format(note.TimeFormat); got != "2024-01-02T03:04:05Z" {
		t.Errorf("CreatedAt = %q, record timestamp should be preserved", got)
	}
}

func TestOpen_CorruptBlob(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := kv.Init(tmpDir)
	if err != nil {
		t.Fatalf("kv.Init failed: %v", err)
	}
	defer db.Close()

	if err := kv.Set(db, kv.KeyNotes, []byte("{{{ definitely not json")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s, err := Open(db)
	if err != nil {
		t.Fatalf("Open should recover from a corrupt blob, got: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 (corrupt blob treated as absent)", s.Len())
	}
}

func TestExportAll_PureRead(t *testing.T) {
	s, _ := openTestStore(t)
	if _, err := s.Create(note.Draft{Title: "a"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	before := s.Notes()

	first, err := s.ExportAll()
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	second, err := s.ExportAll()
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	if string(first) != string(second) {
		t.Error("ExportAll is not deterministic")
	}
	if !reflect.DeepEqual(before, s.Notes()) {
		t.Error("ExportAll mutated the collection")
	}
}

func TestPersistReload_EveryMutation(t *testing.T) {
	s, baseDir := openTestStore(t)

	n, err := s.Create(note.Draft{Title: "a", Body: "b", Tags: []string{"t"}})
	require.NoError(t, err)
	require.NoError(t, s.TogglePin(n.ID))
	require.NoError(t, s.Update(n.ID, "a2", "b2", []string{"t2"}))
	_, err = s.ImportMerge([]byte(`[{"title": "c"}]`))
	require.NoError(t, err)

	reloaded := reopen(t, baseDir)
	require.Equal(t, s.Notes(), reloaded.Notes(),
		"persisted form must equal in-memory form after mutations")
}

func TestCreate_PersistenceFailure_KeepsMutation(t *testing.T) {
	s, _ := openTestStore(t)
	if err := s.db.Close(); err != nil {
		t.Fatalf("closing db: %v", err)
	}

	n, err := s.Create(note.Draft{Title: "offline"})
	if !errors.Is(err, errors.ErrPersistence) {
		t.Fatalf("Create error = %v, want PERSISTENCE", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1: failed write must not roll back", s.Len())
	}
	if _, ok := s.Get(n.ID); !ok {
		t.Error("created note missing from collection after failed write")
	}
}
