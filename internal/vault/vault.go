// Package vault exports notes as a directory of Markdown files with YAML
// frontmatter, one file per note.
package vault

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/note"
)

// frontmatter is the YAML header written above each note body.
type frontmatter struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Tags      []string `yaml:"tags,omitempty"`
	Pinned    bool     `yaml:"pinned"`
	CreatedAt string   `yaml:"createdAt"`
	UpdatedAt string   `yaml:"updatedAt"`
}

// Render serializes a note to Markdown with a YAML frontmatter block.
func Render(n note.Note) (string, error) {
	fm := frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		Tags:      n.Tags,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt.Format(note.TimeFormat),
		UpdatedAt: n.UpdatedAt.Format(note.TimeFormat),
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return "", err
	}
	encoder.Close()
	buf.WriteString("---\n\n")
	buf.WriteString(n.Body)
	if n.Body != "" && !strings.HasSuffix(n.Body, "\n") {
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// Export writes one Markdown file per note into dir, creating it if
// needed. Filenames combine a title slug with the note ID, so they are
// unique and stable across exports. Returns the number of files written.
func Export(notes []note.Note, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return 0, errors.NewInternal(fmt.Errorf("failed to create vault directory: %w", err))
	}

	written := 0
	for _, n := range notes {
		content, err := Render(n)
		if err != nil {
			return written, errors.NewInternal(err)
		}
		path := filepath.Join(dir, Filename(n))
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			return written, errors.NewPersistence(err)
		}
		written++
	}
	return written, nil
}

var slugRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Filename returns the vault filename for a note: <title-slug>-<id>.md.
func Filename(n note.Note) string {
	slug := slugRegex.ReplaceAllString(strings.ToLower(n.Title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "note"
	}
	return fmt.Sprintf("%s-%s.md", slug, strings.ToLower(n.ID))
}
