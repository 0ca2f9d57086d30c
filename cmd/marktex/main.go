package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/blob"
	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/db"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/mcp"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/persist"
	"github.com/koen666/MarkTex/internal/workspace"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"tree": true, "ls": true, "cat": true, "write": true,
	"new": true, "mkdir": true, "mv": true, "rm": true,
	"upload": true, "select": true, "outline": true, "render": true,
	"status": true, "reset": true, "export": true, "import": true,
	"serve": true, "mcp": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   __  __            _    _____
  |  \/  | __ _ _ __| | _|_   _|____  __
  | |\/| |/ _' | '__| |/ / | |/ _ \ \/ /
  | |  | | (_| | |  |   <  | |  __/>  <
  |_|  |_|\__,_|_|  |_|\_\ |_|\___/_/\_\

  Markdown workspace with autosave and image assets

  Usage: marktex <command> [options]
         marktex serve      preview at http://127.0.0.1:8765
         marktex --help

  MCP server mode requires piped input.`)
}

// workspaceHandle owns everything opened for one run.
type workspaceHandle struct {
	db  *sql.DB
	env *ops.Env
}

// openWorkspace opens the database under baseDir, hydrates the session from
// it and wires autosave.
func openWorkspace(ctx context.Context, baseDir string, cfg *config.Config) (*workspaceHandle, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	objects := blob.NewStore()
	session := workspace.New(objects, workspace.WithMaxAssetBytes(cfg.MaxAssetBytes))
	manager := persist.New(db.NewKV(database), session, objects,
		persist.WithDebounce(cfg.AutosaveDebounce()))
	if err := manager.Hydrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	return &workspaceHandle{db: database, env: ops.NewEnv(session, manager)}, nil
}

// Close saves pending edits and closes the database.
func (w *workspaceHandle) Close() error {
	err := w.env.Manager.Close(context.Background())
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// runMCP serves the tools over stdio and saves pending edits on disconnect.
func runMCP(env *ops.Env, cfg *config.Config) error {
	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		logging.Warn("unknown tool in disabled_tools", zap.String("tool", name))
	}
	err := mcp.Run(env, cfg, Version)
	if cerr := env.Manager.Close(context.Background()); err == nil {
		err = cerr
	}
	return err
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	// No args + interactive terminal → show banner and exit
	if len(args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Help and version need no workspace
	if isHelpOrVersion(args) {
		if err := newCLIApp(nil, config.DefaultConfig()).Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	baseDir, err := config.HomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		return 1
	}
	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}

	// stdout carries JSON output or the MCP protocol; logs go to stderr
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, OutputPath: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize logging: %v\n", err)
		return 1
	}
	defer func() { _ = logging.Sync() }()

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode(args) && len(args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", args[1])
		fmt.Fprintf(os.Stderr, "Run 'marktex --help' for usage.\n")
		return 1
	}

	ws, err := openWorkspace(context.Background(), baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logging.Error("failed to save workspace on exit", zap.Error(err))
		}
	}()

	if isCLIMode(args) {
		if err := newCLIApp(ws.env, cfg).Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// MCP server mode (default)
	if err := runMCP(ws.env, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
