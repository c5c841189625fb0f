package note

import "time"

// Record is the persisted and exported form of a note. Timestamps travel
// as RFC3339 strings so exports stay human-readable and portable.
type Record struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	Pinned    bool     `json:"pinned"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// ToRecord converts a note to its persisted form.
func ToRecord(n Note) Record {
	return Record{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Tags:      n.Tags,
		Pinned:    n.Pinned,
		CreatedAt: n.CreatedAt.Format(TimeFormat),
		UpdatedAt: n.UpdatedAt.Format(TimeFormat),
	}
}

// ToRecords converts a collection, preserving order.
func ToRecords(notes []Note) []Record {
	records := make([]Record, len(notes))
	for i, n := range notes {
		records[i] = ToRecord(n)
	}
	return records
}

// FromRecord converts a record back into a note, applying the same
// normalization as a fresh create. A missing ID gets a new ULID; a
// missing or unparsable timestamp falls back to now. UpdatedAt is clamped
// so it never precedes CreatedAt.
func FromRecord(r Record, now time.Time) Note {
	id := r.ID
	if id == "" {
		id = NewID()
	}

	createdAt := parseTime(r.CreatedAt, now)
	updatedAt := parseTime(r.UpdatedAt, now)
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	return Note{
		ID:        id,
		Title:     NormalizeTitle(r.Title),
		Body:      r.Body,
		Tags:      NormalizeTags(r.Tags),
		Pinned:    r.Pinned,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

func parseTime(s string, fallback time.Time) time.Time {
	if s == "" {
		return Clock(fallback)
	}
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return Clock(fallback)
	}
	return Clock(t)
}
