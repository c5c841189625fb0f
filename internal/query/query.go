// Package query implements the deterministic view-projection pipeline:
// filter by text and tag, partition by pin flag, sort by recency. It is
// pure; identical inputs always produce identical output.
package query

import (
	"slices"
	"strings"

	"github.com/hanwin/jot/internal/note"
)

// Filter is the current UI filter state.
type Filter struct {
	// Query is matched case-insensitively as a substring of the
	// concatenated title and body. Empty matches everything.
	Query string

	// Tag must match one of the note's tags exactly. Empty means no
	// tag filter.
	Tag string
}

// Item is a note retained by the projection, carrying its original
// collection index so intents can be routed back to the store.
type Item struct {
	note.Note
	Index int `json:"index"`
}

// Projection is the two ordered display lists.
type Projection struct {
	Pinned   []Item `json:"pinned"`
	Unpinned []Item `json:"unpinned"`
}

// Project filters the collection and partitions it into pinned and
// unpinned lists, each sorted most-recently-updated first. Ties are
// broken by original collection order, so coarse timestamp collisions
// never reorder notes between calls.
func Project(notes []note.Note, f Filter) Projection {
	p := Projection{
		Pinned:   []Item{},
		Unpinned: []Item{},
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))

	for i, n := range notes {
		if !matchesQuery(n, query) || !matchesTag(n, f.Tag) {
			continue
		}
		item := Item{Note: n, Index: i}
		if n.Pinned {
			p.Pinned = append(p.Pinned, item)
		} else {
			p.Unpinned = append(p.Unpinned, item)
		}
	}

	sortItems(p.Pinned)
	sortItems(p.Unpinned)
	return p
}

// DistinctTags returns the union of every note's tags, sorted
// case-insensitively (ties broken case-sensitively). Recomputed on every
// call; no caching.
func DistinctTags(notes []note.Note) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, n := range notes {
		for _, t := range n.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}

	slices.SortFunc(tags, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return tags
}

func matchesQuery(n note.Note, query string) bool {
	if query == "" {
		return true
	}
	text := strings.ToLower(n.Title + " " + n.Body)
	return strings.Contains(text, query)
}

func matchesTag(n note.Note, tag string) bool {
	if tag == "" {
		return true
	}
	return slices.Contains(n.Tags, tag)
}

func sortItems(items []Item) {
	slices.SortFunc(items, func(a, b Item) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return a.Index - b.Index
	})
}
