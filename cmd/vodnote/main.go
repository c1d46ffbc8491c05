package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/vodnote/internal/clipboard"
	"github.com/hpungsan/vodnote/internal/config"
	"github.com/hpungsan/vodnote/internal/db"
	vlog "github.com/hpungsan/vodnote/internal/log"
	"github.com/hpungsan/vodnote/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"add": true, "update": true, "delete": true, "list": true,
	"import": true, "export": true, "clear": true,
	"url": true, "watch": true, "serve": true,
	"help": true,
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
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                  _             _
  __   _____   __| |_ __   ___ | |_ ___
  \ \ / / _ \ / _' | '_ \ / _ \| __/ _ \
   \ V / (_) | (_| | | | | (_) | ||  __/
    \_/ \___/ \__,_|_| |_|\___/ \__\___|

  Timestamped notes for video review

  Usage: vodnote <command> [options]
         vodnote watch      review with a player
         vodnote --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	if isHelpOrVersion(os.Args) {
		app := newCLIApp(&env{})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".vodnote")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	level := cfg.LogLevel
	if os.Getenv("VODNOTE_LOG_LEVEL") != "" {
		level = ""
	}
	vlog.Configure(vlog.Config{Level: level})

	e := &env{
		baseDir:    baseDir,
		cfg:        cfg,
		store:      db.NewKV(database),
		stdin:      os.Stdin,
		stdinPiped: stdinHasData,
		clip:       clipboard.System{},
	}

	if isCLIMode(os.Args) {
		app := newCLIApp(e)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'vodnote --help' for usage.\n")
		os.Exit(1)
	}

	session := e.openSession()
	defer session.Close()
	if err := mcp.Run(session, cfg, db.ExportsDir(baseDir), Version, vlog.WithComponent("mcp")); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
