package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/vodnote/internal/clipboard"
	"github.com/hpungsan/vodnote/internal/config"
	"github.com/hpungsan/vodnote/internal/db"
	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/kv"
	vlog "github.com/hpungsan/vodnote/internal/log"
	"github.com/hpungsan/vodnote/internal/logtext"
	"github.com/hpungsan/vodnote/internal/metrics"
	"github.com/hpungsan/vodnote/internal/player"
	"github.com/hpungsan/vodnote/internal/player/mpv"
	"github.com/hpungsan/vodnote/internal/review"
	"github.com/hpungsan/vodnote/internal/timecode"
	"github.com/hpungsan/vodnote/internal/tui"
	"github.com/hpungsan/vodnote/internal/web"
)

// listPreviewLen bounds note text in list output without --text.
const listPreviewLen = 60

// clipboardIO is the clipboard as both export sink and import source.
type clipboardIO interface {
	clipboard.Sink
	clipboard.Source
}

// env carries what commands need. Tests swap stdin, the clipboard and the
// store for in-memory versions.
type env struct {
	baseDir    string
	cfg        *config.Config
	store      kv.Store
	stdin      io.Reader
	stdinPiped func() bool
	clip       clipboardIO
}

func (e *env) openSession(opts ...review.Option) *review.Session {
	base := []review.Option{
		review.WithClipboard(e.clip),
		review.WithLogger(vlog.WithComponent("review")),
	}
	return review.Open(e.store, e.cfg, append(base, opts...)...)
}

func (e *env) exportsDir() string {
	return db.ExportsDir(e.baseDir)
}

// entryOutput is one note in CLI JSON output.
type entryOutput struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Time      string  `json:"time"`
	Text      string  `json:"text"`
}

func toEntryOutput(e entry.Entry) entryOutput {
	return entryOutput{ID: e.ID, Timestamp: e.Timestamp, Time: timecode.Format(e.Timestamp), Text: e.Text}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "vodnote",
		Usage:   "Timestamped notes for video review",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(e),
			updateCmd(e),
			deleteCmd(e),
			listCmd(e),
			importCmd(e),
			exportCmd(e),
			clearCmd(e),
			urlCmd(e),
			watchCmd(e),
			serveCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a note at a position (text from args or stdin)",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "at", Aliases: []string{"t"}, Required: true, Usage: "Position: mm:ss, h:mm:ss or seconds"},
		},
		Action: func(c *cli.Context) error {
			seconds, ok := timecode.ParseOffset(c.String("at"))
			if !ok {
				return outputError(errors.NewInvalidRequest("--at must be mm:ss, h:mm:ss or seconds"))
			}

			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && e.stdinPiped() {
				var err error
				if text, err = readAll(e.stdin); err != nil {
					return outputError(errors.NewInternal(err))
				}
			}

			added, err := e.openSession().AddAt(seconds, text)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, toEntryOutput(added))
		},
	}
}

// updateCmd creates the update command.
func updateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Replace the text of a note",
		ArgsUsage: "<id> <text>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: vodnote update <id> <text>"))
			}
			updated, err := e.openSession().Update(c.Args().First(), strings.Join(c.Args().Tail(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, toEntryOutput(updated))
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			if id == "" {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			if !e.openSession().Delete(id) {
				return outputError(errors.NewNotFound(id))
			}
			return outputJSON(c, map[string]any{"id": id, "deleted": true})
		},
	}
}

// listCmd creates the list command.
func listCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List notes in timestamp order",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "text", Usage: "Show full note text instead of a preview"},
			&cli.BoolFlag{Name: "plain", Usage: "Print [mm:ss] lines instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			session := e.openSession()
			entries := session.Entries()

			if c.Bool("plain") {
				if body := logtext.FormatBody(entries); body != "" {
					fmt.Fprintln(c.App.Writer, body)
				}
				return nil
			}

			items := make([]entryOutput, 0, len(entries))
			for _, en := range entries {
				out := toEntryOutput(en)
				if !c.Bool("text") {
					out.Text = entry.Preview(out.Text, listPreviewLen)
				}
				items = append(items, out)
			}
			return outputJSON(c, map[string]any{
				"video_id": session.VideoID(),
				"count":    len(items),
				"items":    items,
			})
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import [mm:ss] lines from stdin, the clipboard or an export file",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clipboard", Aliases: []string{"c"}, Usage: "Read from the clipboard"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Export file name in ~/.vodnote/exports"},
		},
		Action: func(c *cli.Context) error {
			session := e.openSession()

			var created []entry.Entry
			var err error
			switch {
			case c.Bool("clipboard") && c.IsSet("file"):
				return outputError(errors.NewInvalidRequest("use either --clipboard or --file"))
			case c.IsSet("file"):
				created, err = session.ImportFile(e.exportsDir(), c.String("file"))
			case c.Bool("clipboard"):
				var text string
				if text, err = e.clip.ReadAll(); err != nil {
					return outputError(errors.NewInternal(err))
				}
				created, err = session.ImportText(text)
			default:
				if !e.stdinPiped() {
					return outputError(errors.NewInvalidRequest("pipe notes via stdin, or use --clipboard or --file"))
				}
				var text string
				if text, err = readAll(e.stdin); err != nil {
					return outputError(errors.NewInternal(err))
				}
				created, err = session.ImportText(text)
			}
			if err != nil {
				return outputError(err)
			}

			items := make([]entryOutput, 0, len(created))
			for _, en := range created {
				items = append(items, toEntryOutput(en))
			}
			return outputJSON(c, map[string]any{"imported": len(created), "items": items})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Print the notes for an LLM rewrite, copy them, or write an export file",
		ArgsUsage: "[name.md]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "copy", Usage: "Copy to the clipboard"},
			&cli.BoolFlag{Name: "file", Aliases: []string{"f"}, Usage: "Write a Markdown file to ~/.vodnote/exports"},
		},
		Action: func(c *cli.Context) error {
			session := e.openSession()

			switch {
			case c.Bool("copy") && c.Bool("file"):
				return outputError(errors.NewInvalidRequest("use either --copy or --file"))
			case c.Bool("file"):
				path, n, err := session.ExportFile(e.exportsDir(), c.Args().First())
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, map[string]any{"path": path, "count": n})
			case c.Bool("copy"):
				n, err := session.CopyForRewrite()
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, map[string]any{"copied": true, "count": n})
			}

			fmt.Fprintln(c.App.Writer, session.ExportText())
			metrics.IncExport(metrics.SinkStdout)
			return nil
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every note",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm deleting all notes"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewCancelled("clear (pass --yes to confirm)"))
			}
			n := e.openSession().Clear()
			return outputJSON(c, map[string]any{"deleted": n})
		},
	}
}

// urlCmd creates the url command.
func urlCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "url",
		Usage:     "Show or set the source video URL",
		ArgsUsage: "[url]",
		Action: func(c *cli.Context) error {
			session := e.openSession()
			if c.NArg() == 0 {
				return outputJSON(c, map[string]any{
					"source_url": session.SourceURL(),
					"video_id":   session.VideoID(),
				})
			}

			id, changed := session.SetSourceURL(strings.Join(c.Args().Slice(), " "))
			return outputJSON(c, map[string]any{
				"source_url": session.SourceURL(),
				"video_id":   id,
				"changed":    changed,
			})
		},
	}
}

// watchCmd creates the watch command: the terminal review screen driving mpv.
func watchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Open the review screen with an mpv player",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "player", Usage: "mpv executable (defaults to player_path in config)"},
		},
		Action: func(c *cli.Context) error {
			// The screen owns the terminal; logs go to a file instead.
			logFile, err := os.OpenFile(filepath.Join(e.baseDir, "vodnote.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			defer logFile.Close()
			vlog.Configure(vlog.Config{Level: e.cfg.LogLevel, Output: logFile})

			path := e.cfg.PlayerPath
			if p := c.String("player"); p != "" {
				path = p
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGTERM)
			defer stop()

			adapter := player.New(
				mpv.New(path, mpv.WithLogger(vlog.WithComponent("mpv"))),
				player.WithPollInterval(e.cfg.PollInterval()),
				player.WithReadyTimeout(e.cfg.ReadyTimeout()),
				player.WithLogger(vlog.WithComponent("player")),
			)
			adapter.Start(ctx)

			session := e.openSession(review.WithPlayer(adapter))
			defer session.Close()

			return tui.Run(session, tui.Options{Source: e.clip, Tick: e.cfg.PollInterval()})
		},
	}
}

// serveCmd creates the serve command: the local web UI.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the notes page on a local port",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Port for the web UI"},
			&cli.IntFlag{Name: "metrics-port", Usage: "Also serve /metrics alone on this port (0 disables)"},
		},
		Action: func(c *cli.Context) error {
			logger := vlog.WithComponent("web")
			session := e.openSession()
			defer session.Close()

			srv, err := web.NewServer(session, web.Options{
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				Version: Version,
				Logger:  logger,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.Run(gctx, srv, logger)
			})
			if port := c.Int("metrics-port"); port > 0 {
				metricsSrv := &http.Server{
					Addr:              fmt.Sprintf("%s:%d", c.String("bind"), port),
					Handler:           promhttp.Handler(),
					ReadHeaderTimeout: 10 * time.Second,
				}
				g.Go(func() error {
					return serveUntilDone(gctx, metricsSrv)
				})
			}
			if err := g.Wait(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// serveUntilDone runs srv until ctx ends.
func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Helper functions

// outputJSON marshals result to the app's stdout as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var vErr *errors.VodnoteError
	if stderrors.As(err, &vErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
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

// readAll reads all content from r, trimmed.
func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
