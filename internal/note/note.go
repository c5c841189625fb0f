package note

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultTitle is substituted when a note is saved with a blank title.
const DefaultTitle = "Untitled"

// TimeFormat is the wire format for note timestamps.
const TimeFormat = time.RFC3339

// Note represents a single user-authored note.
type Note struct {
	// ID is a ULID that uniquely identifies this note. It is the stable
	// identity used to route pin/edit/delete intents back to the store.
	ID string `json:"id"`

	// Title is the display title. Never empty after normalization.
	Title string `json:"title"`

	// Body is free text. May be empty.
	Body string `json:"body"`

	// Tags is a deduplicated list of trimmed, non-empty tags in
	// first-appearance order. Duplicate detection is case-sensitive.
	Tags []string `json:"tags"`

	// Pinned controls which display partition the note falls into.
	Pinned bool `json:"pinned"`

	// CreatedAt is set once at creation and never changes.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is refreshed on every mutation, including pin toggles.
	// Always >= CreatedAt.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Draft holds the optional fields accepted when creating a note.
// Missing or malformed fields are coerced, never rejected.
type Draft struct {
	Title  string
	Body   string
	Tags   []string
	Pinned bool
}

// New constructs a normalized note from a draft. Both timestamps are set
// to now, truncated to UTC seconds so the persisted RFC3339 form
// round-trips exactly.
func New(d Draft, now time.Time) Note {
	now = Clock(now)
	return Note{
		ID:        NewID(),
		Title:     NormalizeTitle(d.Title),
		Body:      d.Body,
		Tags:      NormalizeTags(d.Tags),
		Pinned:    d.Pinned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clock normalizes a timestamp to the resolution notes are stored at:
// UTC, whole seconds. All note timestamps pass through this so in-memory
// and persisted values compare equal.
func Clock(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// NewID generates a new ULID.
func NewID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NormalizeTitle trims the title and substitutes DefaultTitle when blank.
func NormalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTitle
	}
	return s
}

// NormalizeTags trims each tag, drops empty entries, and removes
// duplicates while preserving first-appearance order. Matching is
// case-sensitive: "Work" and "work" are distinct tags.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}

// ParseTagList splits a comma-separated tag string and normalizes the
// result. Used by input surfaces that collect tags as a single field.
func ParseTagList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}
