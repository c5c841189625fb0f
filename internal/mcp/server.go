package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/store"
)

// Tool definitions

var createToolDef = mcp.NewTool("note_create",
	mcp.WithDescription("Create a note. A blank title becomes 'Untitled'; at least one of title or body must be non-empty."),
	mcp.WithString("title", mcp.Description("Note title")),
	mcp.WithString("body", mcp.Description("Note body, Markdown allowed")),
	mcp.WithString("tags", mcp.Description("Comma-separated tags")),
)

var getToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Fetch a single note by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
)

var updateToolDef = mcp.NewTool("note_update",
	mcp.WithDescription("Replace a note's title, body, and tags. An unknown ID is reported as updated: false."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("body", mcp.Description("New body")),
	mcp.WithString("tags", mcp.Description("Comma-separated tags, replaces the existing set")),
)

var deleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Delete a note. Requires confirm: true; otherwise the delete is declined."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	mcp.WithBoolean("confirm", mcp.Description("Confirmation gate; must be true to delete")),
)

var pinToolDef = mcp.NewTool("note_pin",
	mcp.WithDescription("Toggle a note's pinned flag."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List notes as pinned/unpinned partitions, newest first, optionally filtered."),
	mcp.WithString("query", mcp.Description("Case-insensitive substring matched against title and body")),
	mcp.WithString("tag", mcp.Description("Exact tag filter")),
)

var tagsToolDef = mcp.NewTool("note_tags",
	mcp.WithDescription("List all distinct tags in use, alphabetically."),
)

var exportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Export every note as a pretty-printed JSON array."),
)

var importToolDef = mcp.NewTool("note_import",
	mcp.WithDescription("Merge notes from a JSON array into the collection. Invalid data aborts with zero mutation."),
	mcp.WithString("notes", mcp.Required(), mcp.Description("JSON array of note records")),
)

var clearToolDef = mcp.NewTool("note_clear",
	mcp.WithDescription("Delete every note. Requires confirm: true."),
	mcp.WithBoolean("confirm", mcp.Description("Confirmation gate; must be true to clear")),
)

var themeGetToolDef = mcp.NewTool("theme_get",
	mcp.WithDescription("Get the persisted theme preference."),
)

var themeSetToolDef = mcp.NewTool("theme_set",
	mcp.WithDescription("Set the theme preference to dark or light."),
	mcp.WithString("theme", mcp.Required(), mcp.Description("One of 'dark' or 'light'")),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"note_create": {
		def:     createToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"note_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"note_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"note_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"note_pin": {
		def:     pinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePin },
	},
	"note_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"note_tags": {
		def:     tagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTags },
	},
	"note_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"note_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"note_clear": {
		def:     clearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear },
	},
	"theme_get": {
		def:     themeGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThemeGet },
	},
	"theme_set": {
		def:     themeSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleThemeSet },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with jot tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(st *store.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"jot",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, cfg)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(st *store.Store, cfg *config.Config, version string) error {
	s := NewServer(st, cfg, version)
	return server.ServeStdio(s)
}
