package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/hanwin/jot/internal/config"
	"github.com/hanwin/jot/internal/dictation"
	"github.com/hanwin/jot/internal/errors"
	"github.com/hanwin/jot/internal/note"
	"github.com/hanwin/jot/internal/paths"
	"github.com/hanwin/jot/internal/query"
	"github.com/hanwin/jot/internal/store"
	"github.com/hanwin/jot/internal/vault"
	"github.com/hanwin/jot/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(st *store.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "jot",
		Usage:   "Local smart notes",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(st),
			showCmd(st),
			editCmd(st),
			rmCmd(st),
			pinCmd(st),
			listCmd(st),
			tagsCmd(st),
			clearCmd(st),
			exportCmd(st, cfg),
			importCmd(st, cfg),
			themeCmd(st),
			serveCmd(st, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a note (reads the body from stdin when piped)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title (defaults to Untitled)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.BoolFlag{Name: "dictate", Aliases: []string{"d"}, Usage: "Treat each stdin line as a dictated transcript chunk"},
		},
		Action: func(c *cli.Context) error {
			var body string
			if stdinHasData() {
				if c.Bool("dictate") {
					text, err := dictateBody(os.Stdin)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					body = text
				} else {
					text, err := readStdin()
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					body = text
				}
			}

			title := c.String("title")
			if title == "" && body == "" {
				return outputError(errors.NewValidation("please provide a title or pipe a note body"))
			}

			n, err := st.Create(note.Draft{
				Title: title,
				Body:  body,
				Tags:  note.ParseTagList(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(note.ToRecord(n))
		},
	}
}

// showCmd creates the show command.
func showCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a note by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			n, ok := st.Get(c.Args().First())
			if !ok {
				return outputError(errors.NewNotFound(c.Args().First()))
			}
			return outputJSON(note.ToRecord(n))
		},
	}
}

// editCmd creates the edit command. Fields not supplied keep their
// current value; a piped stdin replaces the body.
func editCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note (optionally reads a new body from stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "tags", Usage: "New comma-separated tags, replaces the existing set"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			id := c.Args().First()

			existing, ok := st.Get(id)
			if !ok {
				return outputError(errors.NewNotFound(id))
			}

			title := existing.Title
			if c.IsSet("title") {
				title = c.String("title")
			}

			body := existing.Body
			if stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				body = text
			}

			tags := existing.Tags
			if c.IsSet("tags") {
				tags = note.ParseTagList(c.String("tags"))
			}

			if title == "" && body == "" {
				return outputError(errors.NewValidation("please provide a title or note body"))
			}

			if err := st.Update(id, title, body, tags); err != nil {
				return outputError(err)
			}

			updated, _ := st.Get(id)
			return outputJSON(note.ToRecord(updated))
		},
	}
}

// rmCmd creates the rm command.
func rmCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			id := c.Args().First()

			deleted, err := st.Delete(id, func(string) bool { return c.Bool("yes") })
			if err != nil {
				return outputError(err)
			}
			if !deleted {
				return outputJSON(map[string]any{"deleted": false, "hint": "pass --yes to confirm"})
			}
			return outputJSON(map[string]any{"deleted": true, "id": id})
		},
	}
}

// pinCmd creates the pin command.
func pinCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Toggle a note's pinned flag",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			id := c.Args().First()

			if err := st.TogglePin(id); err != nil {
				return outputError(err)
			}
			n, _ := st.Get(id)
			return outputJSON(note.ToRecord(n))
		},
	}
}

// listCmd creates the list command.
func listCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes as pinned/unpinned partitions, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Case-insensitive substring matched against title and body"},
			&cli.StringFlag{Name: "tag", Usage: "Exact tag filter"},
		},
		Action: func(c *cli.Context) error {
			p := query.Project(st.Notes(), query.Filter{
				Query: c.String("query"),
				Tag:   c.String("tag"),
			})
			return outputJSON(map[string]any{
				"pinned":   itemRecords(p.Pinned),
				"unpinned": itemRecords(p.Unpinned),
			})
		},
	}
}

// tagsCmd creates the tags command.
func tagsCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List all distinct tags in use",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"tags": query.DistinctTags(st.Notes())})
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every note",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
		},
		Action: func(c *cli.Context) error {
			cleared, err := st.ClearAll(func(string) bool { return c.Bool("yes") })
			if err != nil {
				return outputError(err)
			}
			if !cleared {
				return outputJSON(map[string]any{"cleared": false, "hint": "pass --yes to confirm"})
			}
			return outputJSON(map[string]any{"cleared": true})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export notes to a JSON file or a directory of Markdown files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination path (default: ~/.jot/exports/)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "json", Usage: "Export format: json|markdown"},
		},
		Action: func(c *cli.Context) error {
			switch c.String("format") {
			case "json":
				data, err := st.ExportAll()
				if err != nil {
					return outputError(err)
				}
				path := c.String("path")
				if path == "" {
					path = filepath.Join(defaultExportDir(), cfg.ExportFilename)
				}
				if err := paths.Validate(path, paths.CheckWrite, cfg); err != nil {
					return outputError(err)
				}
				if err := os.WriteFile(path, data, 0600); err != nil {
					return outputError(errors.NewInternal(err))
				}
				return outputJSON(map[string]any{"path": path, "exported": st.Len()})

			case "markdown":
				dir := c.String("path")
				if dir == "" {
					dir = defaultExportDir()
				}
				count, err := vault.Export(st.Notes(), dir)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"path": dir, "exported": count})

			default:
				return outputError(errors.NewInvalidRequest("format must be json or markdown"))
			}
		},
	}
}

// importCmd creates the import command.
func importCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Merge notes from a JSON file into the collection",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: func(c *cli.Context) error {
			if err := paths.Validate(c.String("path"), paths.CheckRead, cfg); err != nil {
				return outputError(err)
			}
			blob, err := os.ReadFile(c.String("path"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", c.String("path"), err)))
			}

			count, err := st.ImportMerge(blob)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"imported": count})
		},
	}
}

// themeCmd creates the theme command.
func themeCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "theme",
		Usage:     "Show or change the theme preference",
		ArgsUsage: "[dark|light|toggle]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputJSON(map[string]any{"theme": st.Theme()})
			}

			switch arg := c.Args().First(); arg {
			case "toggle":
				theme, err := st.ToggleTheme()
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"theme": theme})
			default:
				if err := st.SetTheme(arg); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"theme": arg})
			}
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 8787, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(st, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv, slog.Default())
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if jotErr, ok := err.(*errors.JotError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", jotErr.Code, jotErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// dictateBody runs the input through a dictation session, folding each
// line into the pending body as a final transcript chunk.
func dictateBody(r io.Reader) (string, error) {
	sess := dictation.NewSession(dictation.NewReaderRecognizer(r), slog.Default())
	if err := sess.Start(); err != nil {
		return "", err
	}
	sess.Wait()
	return sess.Body(), nil
}

// defaultExportDir returns ~/.jot/exports, falling back to the working
// directory when the home directory cannot be determined.
func defaultExportDir() string {
	dir, err := paths.ExportsDir()
	if err != nil {
		return "."
	}
	return dir
}

// itemRecords converts projection items to output records.
func itemRecords(items []query.Item) []note.Record {
	records := make([]note.Record, len(items))
	for i, item := range items {
		records[i] = note.ToRecord(item.Note)
	}
	return records
}
