package web

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/kv"
	"github.com/hanwin/jot/internal/note"
	"github.com/hanwin/jot/internal/store"
)

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := kv.Init(tmpDir)
	if err != nil {
		t.Fatalf("kv.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st, err := store.Open(database)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	return &Handlers{
		store:    st,
		cfg:      config.DefaultConfig(),
		renderer: NewRenderer(templateSub, "test"),
	}
}

// seedNote creates a note and returns its ID.
func seedNote(t *testing.T, h *Handlers, title, body string, tags ...string) string {
	t.Helper()
	n, err := h.store.Create(note.Draft{Title: title, Body: body, Tags: tags})
	if err != nil {
		t.Fatalf("seed note %q: %v", title, err)
	}
	return n.ID
}

func postForm(handler http.HandlerFunc, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// --- HandleList ---

func TestHandleList_Default(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "groceries", "milk and eggs")

	req := httptest.NewRequest("GET", "/notes", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "groceries") {
		t.Error("expected note title 'groceries' in response")
	}
}

func TestHandleList_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/notes", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No notes") {
		t.Error("expected empty state message")
	}
}

func TestHandleList_QueryFilter(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "meeting agenda", "quarterly review")
	seedNote(t, h, "recipe", "pasta with garlic")

	req := httptest.NewRequest("GET", "/notes?q=quarterly", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "meeting agenda") {
		t.Error("expected matching note in filtered results")
	}
	if strings.Contains(body, ">recipe<") {
		t.Error("did not expect non-matching note in filtered results")
	}
}

func TestHandleList_TagFilter(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "tagged", "body", "work")
	seedNote(t, h, "untagged", "body")

	req := httptest.NewRequest("GET", "/notes?tag=work", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "tagged") {
		t.Error("expected tagged note in filtered results")
	}
	if strings.Contains(body, ">untagged<") {
		t.Error("did not expect untagged note in filtered results")
	}
}

// --- HandleCreate ---

func TestHandleCreate_Success(t *testing.T) {
	h := setupTest(t)

	rec := postForm(h.HandleCreate, "/notes", url.Values{
		"title": {"new note"},
		"body":  {"some text"},
		"tags":  {"a, b"},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.store.Len() != 1 {
		t.Fatalf("store.Len() = %d, want 1", h.store.Len())
	}
}

func TestHandleCreate_EmptyRejected(t *testing.T) {
	h := setupTest(t)

	rec := postForm(h.HandleCreate, "/notes", url.Values{
		"title": {""},
		"body":  {""},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if h.store.Len() != 0 {
		t.Error("empty submission should not create a note")
	}
}

func TestHandleCreate_BodyOnlyGetsDefaultTitle(t *testing.T) {
	h := setupTest(t)

	rec := postForm(h.HandleCreate, "/notes", url.Values{
		"body": {"just a body"},
	})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	notes := h.store.Notes()
	if len(notes) != 1 || notes[0].Title != "Untitled" {
		t.Fatalf("notes = %+v, want single note titled 'Untitled'", notes)
	}
}

// --- HandleDetail ---

func TestHandleDetail_RendersMarkdown(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "md", "# Heading\n\nsome *emphasis*")

	req := httptest.NewRequest("GET", "/notes/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1") {
		t.Error("expected rendered markdown heading")
	}
	if !strings.Contains(body, "<em>emphasis</em>") {
		t.Error("expected rendered emphasis")
	}
}

func TestHandleDetail_EscapesRawHTML(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "xss", `<script>alert("x")</script>`)

	req := httptest.NewRequest("GET", "/notes/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if strings.Contains(rec.Body.String(), "<script>alert") {
		t.Error("raw HTML in note body must not pass through unescaped")
	}
}

func TestHandleDetail_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/notes/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- HandleUpdate ---

func TestHandleUpdate_Success(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "before", "old body")

	req := httptest.NewRequest("POST", "/notes/"+id,
		strings.NewReader(url.Values{"title": {"after"}, "body": {"new body"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	n, _ := h.store.Get(id)
	if n.Title != "after" || n.Body != "new body" {
		t.Errorf("note = %+v, want updated title and body", n)
	}
}

// --- HandleTogglePin ---

func TestHandleTogglePin(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "pinnable", "body")

	req := httptest.NewRequest("POST", "/notes/"+id+"/pin", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleTogglePin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	n, _ := h.store.Get(id)
	if !n.Pinned {
		t.Error("note should be pinned after toggle")
	}
}

func TestHandleTogglePin_UnknownID(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/notes/nope/pin", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.HandleTogglePin(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// --- HandleDelete / HandleClearAll ---

func TestHandleDelete_RequiresConfirm(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "keepme", "body")

	req := httptest.NewRequest("POST", "/notes/"+id+"/delete", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.store.Len() != 1 {
		t.Error("delete without confirm field should be a no-op")
	}
}

func TestHandleDelete_Confirmed(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "goner", "body")

	req := httptest.NewRequest("POST", "/notes/"+id+"/delete",
		strings.NewReader(url.Values{"confirm": {"yes"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.store.Len() != 0 {
		t.Error("confirmed delete should remove the note")
	}
}

func TestHandleClearAll_Confirmed(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "one", "a")
	seedNote(t, h, "two", "b")

	rec := postForm(h.HandleClearAll, "/notes/clear", url.Values{"confirm": {"yes"}})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.store.Len() != 0 {
		t.Errorf("store.Len() = %d, want 0 after clear", h.store.Len())
	}
}

// --- Export / Import ---

func TestHandleExport(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "exported", "payload", "x")

	req := httptest.NewRequest("GET", "/export", nil)
	rec := httptest.NewRecorder()
	h.HandleExport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "smart-notes-export.json") {
		t.Errorf("Content-Disposition = %q, want suggested filename", got)
	}

	var records []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("export is not a JSON array: %v", err)
	}
	if len(records) != 1 || records[0]["title"] != "exported" {
		t.Errorf("records = %+v, want single exported note", records)
	}
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleImport_MergesNotes(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "existing", "body")

	payload := []byte(`[{"title":"imported","body":"from file","tags":["t"],"pinned":false}]`)
	body, contentType := multipartFile(t, "file", "notes.json", payload)

	req := httptest.NewRequest("POST", "/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if h.store.Len() != 2 {
		t.Errorf("store.Len() = %d, want 2 after merge", h.store.Len())
	}
}

func TestHandleImport_RejectsNonArray(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "existing", "body")

	body, contentType := multipartFile(t, "file", "bad.json", []byte(`{"not":"an array"}`))

	req := httptest.NewRequest("POST", "/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if h.store.Len() != 1 {
		t.Error("failed import must not mutate the collection")
	}
}

func TestHandleImport_MissingFile(t *testing.T) {
	h := setupTest(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest("POST", "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.HandleImport(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// --- HandleThemeToggle ---

func TestHandleThemeToggle(t *testing.T) {
	h := setupTest(t)

	rec := postForm(h.HandleThemeToggle, "/theme", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := h.store.Theme(); got != store.ThemeDark {
		t.Errorf("theme = %q, want dark after toggle from default light", got)
	}
}

func TestHandleThemeToggle_RejectsOffsiteRedirect(t *testing.T) {
	h := setupTest(t)

	cases := []struct {
		name string
		back string
		want string
	}{
		{"local path kept", "/notes/abc", "/notes/abc"},
		{"empty defaults", "", "/notes"},
		{"absolute URL rejected", "https://example.com/phish", "/notes"},
		{"protocol-relative rejected", "//example.com/phish", "/notes"},
		{"relative path rejected", "notes", "/notes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(h.HandleThemeToggle, "/theme", url.Values{"back": {tc.back}})
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want 303", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tc.want {
				t.Errorf("Location = %q, want %q", got, tc.want)
			}
		})
	}
}

// --- destructive form markup ---

// Destructive forms must not pre-approve the server-side confirmation
// gate: the confirm field starts empty and is filled in only after the
// user accepts the dialog wired up by confirm.js.
func TestListPage_DestructiveFormsNotPreApproved(t *testing.T) {
	h := setupTest(t)
	seedNote(t, h, "precious", "body")

	req := httptest.NewRequest("GET", "/notes", nil)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, `name="confirm" value="yes"`) {
		t.Error("list page ships a pre-approved confirm field")
	}
	if !strings.Contains(body, `data-confirm="Delete this note?"`) {
		t.Error("delete form is missing its confirmation prompt")
	}
	if !strings.Contains(body, `data-confirm="Clear ALL notes?`) {
		t.Error("clear-all form is missing its confirmation prompt")
	}
	if !strings.Contains(body, "/static/confirm.js") {
		t.Error("page does not load the confirmation script")
	}
}

func TestDetailPage_DeleteFormNotPreApproved(t *testing.T) {
	h := setupTest(t)
	id := seedNote(t, h, "precious", "body")

	req := httptest.NewRequest("GET", "/notes/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDetail(rec, req)

	body := rec.Body.String()
	if strings.Contains(body, `name="confirm" value="yes"`) {
		t.Error("detail page ships a pre-approved confirm field")
	}
	if !strings.Contains(body, `data-confirm="Delete this note?"`) {
		t.Error("delete form is missing its confirmation prompt")
	}
}
