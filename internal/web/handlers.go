package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/note"
	"github.com/hanwin/jot/internal/query"
	"github.com/hanwin/jot/internal/store"
)

// maxImportBytes bounds uploaded import files.
const maxImportBytes = 10 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *store.Store
	cfg      *config.Config
	renderer *Renderer
}

// HandleList handles GET /notes and renders the projected pinned/unpinned lists.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	notes := h.store.Notes()
	f := query.Filter{
		Query: r.URL.Query().Get("q"),
		Tag:   r.URL.Query().Get("tag"),
	}
	p := query.Project(notes, f)

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Notes",
			Version: h.renderer.version,
			Theme:   h.store.Theme(),
		},
		Pinned:      p.Pinned,
		Unpinned:    p.Unpinned,
		Tags:        query.DistinctTags(notes),
		Query:       f.Query,
		Tag:         f.Tag,
		MaxCardTags: h.cfg.MaxCardTags,
	})
}

// HandleCreate handles POST /notes, the save intent for a new note.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	body := r.FormValue("body")

	if title == "" && body == "" {
		h.renderer.renderError(w, h.store.Theme(),
			errors.NewValidation("please enter a title or note body"))
		return
	}

	_, err := h.store.Create(note.Draft{
		Title: title,
		Body:  body,
		Tags:  note.ParseTagList(r.FormValue("tags")),
	})
	if err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}

	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleDetail handles GET /notes/{id} and renders a single note with its body
// rendered as Markdown.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, ok := h.store.Get(id)
	if !ok {
		h.renderer.renderError(w, h.store.Theme(), errors.NewNotFound(id))
		return
	}

	rendered, err := markdownHTML(n.Body)
	if err != nil {
		h.renderer.renderError(w, h.store.Theme(), errors.NewInternal(err))
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   n.Title,
			Version: h.renderer.version,
			Theme:   h.store.Theme(),
		},
		Item:         query.Item{Note: n},
		RenderedHTML: rendered,
	})
}

// HandleUpdate handles POST /notes/{id}, the save intent for an edit.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	title := r.FormValue("title")
	body := r.FormValue("body")

	if title == "" && body == "" {
		h.renderer.renderError(w, h.store.Theme(),
			errors.NewValidation("please enter a title or note body"))
		return
	}

	if err := h.store.Update(id, title, body, note.ParseTagList(r.FormValue("tags"))); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}

	http.Redirect(w, r, "/notes/"+id, http.StatusSeeOther)
}

// HandleTogglePin handles POST /notes/{id}/pin.
func (h *Handlers) HandleTogglePin(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TogglePin(r.PathValue("id")); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleDelete handles POST /notes/{id}/delete. The confirmation gate is
// the submitted confirm field; without it the delete is a no-op.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	confirm := func(string) bool { return r.FormValue("confirm") == "yes" }

	if _, err := h.store.Delete(r.PathValue("id"), confirm); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleClearAll handles POST /notes/clear with the same form-field gate
// as delete.
func (h *Handlers) HandleClearAll(w http.ResponseWriter, r *http.Request) {
	confirm := func(string) bool { return r.FormValue("confirm") == "yes" }

	if _, err := h.store.ClearAll(confirm); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleExport handles GET /export and serves the full collection as a JSON
// download with the configured suggested filename.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.ExportAll()
	if err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.cfg.ExportFilename+`"`)
	_, _ = w.Write(data)
}

// HandleImport handles POST /import, merging notes from an uploaded JSON
// file. Invalid data aborts with zero mutation.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		h.renderer.renderError(w, h.store.Theme(),
			errors.NewInvalidRequest("invalid upload"))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.renderer.renderError(w, h.store.Theme(),
			errors.NewInvalidRequest("missing import file"))
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		h.renderer.renderError(w, h.store.Theme(), errors.NewInternal(err))
		return
	}

	if _, err := h.store.ImportMerge(blob); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleThemeToggle handles POST /theme.
func (h *Handlers) HandleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ToggleTheme(); err != nil {
		h.renderer.renderError(w, h.store.Theme(), err)
		return
	}

	// Only redirect within the app: a single leading slash, so schemes
	// and protocol-relative //host targets are rejected.
	redirect := r.FormValue("back")
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/notes"
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
