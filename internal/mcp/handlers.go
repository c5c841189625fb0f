package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/note"
	"github.com/hanwin/jot/internal/query"
	"github.com/hanwin/jot/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *store.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: st, cfg: cfg}
}

// Request types for each tool

// CreateRequest represents the arguments for note_create.
type CreateRequest struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Tags  string `json:"tags,omitempty"`
}

// GetRequest represents the arguments for note_get.
type GetRequest struct {
	ID string `json:"id"`
}

// UpdateRequest represents the arguments for note_update.
type UpdateRequest struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Tags  string `json:"tags,omitempty"`
}

// DeleteRequest represents the arguments for note_delete.
type DeleteRequest struct {
	ID      string `json:"id"`
	Confirm bool   `json:"confirm,omitempty"`
}

// PinRequest represents the arguments for note_pin.
type PinRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	Query string `json:"query,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// ImportRequest represents the arguments for note_import.
type ImportRequest struct {
	Notes string `json:"notes"`
}

// ClearRequest represents the arguments for note_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm,omitempty"`
}

// ThemeSetRequest represents the arguments for theme_set.
type ThemeSetRequest struct {
	Theme string `json:"theme"`
}

// Handler implementations

// HandleCreate handles the note_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Title == "" && input.Body == "" {
		return errorResult(errors.NewValidation("please provide a title or note body")), nil
	}

	n, err := h.store.Create(note.Draft{
		Title: input.Title,
		Body:  input.Body,
		Tags:  note.ParseTagList(input.Tags),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(note.ToRecord(n))
}

// HandleGet handles the note_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	n, ok := h.store.Get(input.ID)
	if !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}

	return successResult(note.ToRecord(n))
}

// HandleUpdate handles the note_update tool call. An unknown ID is
// reported as updated: false rather than an error.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Title == "" && input.Body == "" {
		return errorResult(errors.NewValidation("please provide a title or note body")), nil
	}

	_, exists := h.store.Get(input.ID)
	if err := h.store.Update(input.ID, input.Title, input.Body, note.ParseTagList(input.Tags)); err != nil {
		return errorResult(err), nil
	}
	if !exists {
		return successResult(map[string]any{"updated": false})
	}

	n, _ := h.store.Get(input.ID)
	return successResult(map[string]any{"updated": true, "note": note.ToRecord(n)})
}

// HandleDelete handles the note_delete tool call. The confirm argument
// is the confirmation gate; without it the delete is declined.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	deleted, err := h.store.Delete(input.ID, func(string) bool { return input.Confirm })
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"deleted": deleted})
}

// HandlePin handles the note_pin tool call.
func (h *Handlers) HandlePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PinRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.TogglePin(input.ID); err != nil {
		return errorResult(err), nil
	}

	n, _ := h.store.Get(input.ID)
	return successResult(note.ToRecord(n))
}

// HandleList handles the note_list tool call. The result carries the
// same pinned/unpinned partitions the UI shows.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p := query.Project(h.store.Notes(), query.Filter{Query: input.Query, Tag: input.Tag})

	return successResult(map[string]any{
		"pinned":   itemRecords(p.Pinned),
		"unpinned": itemRecords(p.Unpinned),
	})
}

// HandleTags handles the note_tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{
		"tags": query.DistinctTags(h.store.Notes()),
	})
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := h.store.ExportAll()
	if err != nil {
		return errorResult(err), nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

// HandleImport handles the note_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	count, err := h.store.ImportMerge([]byte(input.Notes))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"imported": count})
}

// HandleClear handles the note_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	cleared, err := h.store.ClearAll(func(string) bool { return input.Confirm })
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"cleared": cleared})
}

// HandleThemeGet handles the theme_get tool call.
func (h *Handlers) HandleThemeGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"theme": h.store.Theme()})
}

// HandleThemeSet handles the theme_set tool call.
func (h *Handlers) HandleThemeSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ThemeSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.SetTheme(input.Theme); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"theme": input.Theme})
}

// itemRecords converts projection items to wire records.
func itemRecords(items []query.Item) []note.Record {
	records := make([]note.Record, len(items))
	for i, item := range items {
		records[i] = note.ToRecord(item.Note)
	}
	return records
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if jotErr, ok := err.(*errors.JotError); ok {
		errorObj := map[string]any{
			"code":    jotErr.Code,
			"message": jotErr.Message,
			"status":  jotErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if jotErr.Code != errors.ErrInternal && jotErr.Code != errors.ErrPersistence && jotErr.Details != nil {
			errorObj["details"] = jotErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
