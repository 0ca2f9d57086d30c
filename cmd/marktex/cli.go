package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/errors"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/vfs"
	"github.com/koen666/MarkTex/internal/web"
)

// newCLIApp creates the CLI application with all commands. Pending edits are
// flushed to the store after every command.
func newCLIApp(env *ops.Env, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "marktex",
		Usage:   "Markdown workspace with autosave, image assets and live preview",
		Version: Version,
		Commands: []*cli.Command{
			treeCmd(env),
			catCmd(env),
			writeCmd(env),
			newCmd(env),
			mkdirCmd(env),
			mvCmd(env),
			rmCmd(env),
			uploadCmd(env),
			selectCmd(env),
			outlineCmd(env),
			renderCmd(env),
			statusCmd(env),
			resetCmd(env),
			exportCmd(env, cfg),
			importCmd(env, cfg),
			serveCmd(env, cfg),
			mcpCmd(env, cfg),
		},
		After: func(c *cli.Context) error {
			if env == nil {
				return nil
			}
			if err := env.Manager.Flush(c.Context); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// treeCmd creates the tree command.
func treeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:    "tree",
		Aliases: []string{"ls"},
		Usage:   "List the workspace tree",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "match", Aliases: []string{"m"}, Usage: "Glob over ids, e.g. 'notes/**' or 'assets/*.png'"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Tree(env, ops.TreeInput{Match: c.String("match")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// catCmd creates the cat command.
func catCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print a document (default: the current one)",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "Print the text only"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Read(env, ops.ReadInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("raw") {
				_, err := io.WriteString(c.App.Writer, output.Content)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// writeCmd creates the write command.
func writeCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "Replace a document's text (reads content from stdin)",
		ArgsUsage: "[id]",
		Action: func(c *cli.Context) error {
			content, err := readInput(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Write(env, ops.WriteInput{ID: c.Args().First(), Content: content})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// newCmd creates the new command.
func newCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a document",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent folder id"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Initial text"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one name is required"))
			}
			output, err := ops.Create(env, ops.CreateInput{
				Parent:  c.String("parent"),
				Name:    c.Args().First(),
				Type:    vfs.KindFile,
				Content: c.String("content"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// mkdirCmd creates the mkdir command.
func mkdirCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "mkdir",
		Usage:     "Create a folder",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent folder id"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one name is required"))
			}
			output, err := ops.Create(env, ops.CreateInput{
				Parent: c.String("parent"),
				Name:   c.Args().First(),
				Type:   vfs.KindFolder,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// mvCmd creates the mv command.
func mvCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "mv",
		Usage:     "Rename a document or folder in place",
		ArgsUsage: "<id> <new-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(errors.NewInvalidRequest("usage: mv <id> <new-name>"))
			}
			output, err := ops.Rename(env, ops.RenameInput{ID: c.Args().Get(0), Name: c.Args().Get(1)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// rmCmd creates the rm command.
func rmCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a document, or a folder with everything in it",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(env, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// uploadCmd creates the upload command.
func uploadCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Add image files under assets/",
		ArgsUsage: "<file>...",
		Action: func(c *cli.Context) error {
			items, err := ops.ReadUploads(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Upload(env, ops.UploadInput{Items: items})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// selectCmd creates the select command.
func selectCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Make a document the current one",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one id is required"))
			}
			output, err := ops.Select(env, ops.SelectInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// outlineCmd creates the outline command.
func outlineCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "outline",
		Usage:     "Print the heading outline of a document",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "flat", Usage: "List headings without nesting"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Outline(env, ops.OutlineInput{ID: c.Args().First(), Flat: c.Bool("flat")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// renderCmd creates the render command.
func renderCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a document to HTML",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "inline", Usage: "Embed images as data URLs"},
			&cli.BoolFlag{Name: "raw", Usage: "Print the HTML only"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Render(env, ops.RenderInput{ID: c.Args().First(), Inline: c.Bool("inline")})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("raw") {
				_, err := io.WriteString(c.App.Writer, output.HTML)
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show workspace counts, autosave state and the stored snapshot",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// resetCmd creates the reset command.
func resetCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Delete the saved workspace; the next start begins from the default",
		Action: func(c *cli.Context) error {
			if err := env.Manager.Clear(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]bool{"cleared": true})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the workspace to a .json file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default: ~/.marktex/exports/<name>-<timestamp>.json)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "File name prefix when --path is omitted"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env, cfg, ops.ExportInput{
				Path: c.String("path"),
				Name: c.String("name"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace the workspace with an exported .json file",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one path is required"))
			}
			output, err := ops.Import(c.Context, env, cfg, ops.ImportInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *ops.Env, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the preview server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config, 8765)"},
		},
		Action: func(c *cli.Context) error {
			bind := cfg.ServeBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := cfg.ServePort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("port must be 1-65535, got %d", port)))
			}

			srv := web.NewServer(env, cfg, Version, bind, port)
			err := web.Run(srv)
			if closeErr := env.Manager.Close(context.Background()); err == nil {
				err = closeErr
			}
			if err != nil && !stderrors.Is(err, context.Canceled) {
				return outputError(err)
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *ops.Env, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the workspace tools over stdio (the default when stdin is piped)",
		Action: func(c *cli.Context) error {
			return runMCP(env, cfg)
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var wsErr *errors.WorkspaceError
	if stderrors.As(err, &wsErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", wsErr.Code, wsErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readInput reads the whole of the app's reader. An interactive terminal is
// refused so a forgotten pipe does not hang.
func readInput(c *cli.Context) (string, error) {
	if f, ok := c.App.Reader.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "", errors.NewInvalidRequest("content must be piped via stdin")
	}
	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
