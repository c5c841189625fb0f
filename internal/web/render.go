package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/query"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Theme   string
}

// ListPageData is the template data for the note list page.
type ListPageData struct {
	PageData
	Pinned      []query.Item
	Unpinned    []query.Item
	Tags        []string
	Query       string
	Tag         string
	MaxCardTags int
}

// DetailPageData is the template data for the note detail page.
type DetailPageData struct {
	PageData
	Item         query.Item
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	Code    string
	Message string
}

// Renderer loads and executes page templates.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// templateFuncs are helpers available to all templates.
var templateFuncs = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"truncate": func(s string, n int) string {
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return string(runes[:n]) + "…"
	},
	"capTags": func(tags []string, max int) []string {
		if max > 0 && len(tags) > max {
			return tags[:max]
		}
		return tags
	},
	"card": func(item query.Item, maxTags int) cardData {
		return cardData{Item: item, MaxTags: maxTags}
	},
}

// cardData is the context passed to the note card template.
type cardData struct {
	Item    query.Item
	MaxTags int
}

// NewRenderer parses all page templates against the shared base layout.
func NewRenderer(templates fs.FS, version string) *Renderer {
	pages := []string{"list", "detail", "error"}
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t := template.New("base.html").Funcs(templateFuncs)
		parsed[page] = template.Must(t.ParseFS(templates, "base.html", page+".html"))
	}
	return &Renderer{templates: parsed, version: version}
}

// renderPage executes a page template with the given data.
func (rn *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, "unknown template: "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("template execution failed", "template", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderError maps an error to the error page with the right status code.
func (rn *Renderer) renderError(w http.ResponseWriter, theme string, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	message := "an internal error occurred"

	if jErr, ok := err.(*errors.JotError); ok {
		status = jErr.Status
		code = string(jErr.Code)
		message = jErr.Message
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	tmpl, ok := rn.templates["error"]
	if !ok {
		fmt.Fprintf(w, "[%s] %s", code, message)
		return
	}
	data := ErrorPageData{
		PageData: PageData{Title: "Error", Version: rn.version, Theme: theme},
		Code:     code,
		Message:  message,
	}
	if execErr := tmpl.ExecuteTemplate(w, "base.html", data); execErr != nil {
		slog.Error("error template failed", "err", execErr)
	}
}

// markdownHTML renders a note body as HTML. goldmark escapes raw HTML by
// default, so note content cannot inject markup.
func markdownHTML(body string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
