// Package web serves the local notes page: the ordered log rendered as
// Markdown, a paste-in import form, plain-text export and metrics.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	vlog "github.com/hpungsan/vodnote/internal/log"
	"github.com/hpungsan/vodnote/internal/review"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	defaultMutationLimit = 30
	shutdownTimeout      = 5 * time.Second
)

// Options configures the web server.
type Options struct {
	Bind    string
	Port    int
	Version string

	// CSRFKey authenticates CSRF cookies. A fresh random key is used when it
	// is not 32 bytes long, which invalidates open pages on restart.
	CSRFKey []byte

	// MutationLimit caps import and delete requests per client per minute.
	MutationLimit int

	Logger zerolog.Logger
}

// NewServer creates and configures the HTTP server for the web UI.
func NewServer(session *review.Session, opts Options) (*http.Server, error) {
	handler, err := NewRouter(session, opts)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// NewRouter builds the route tree with its middleware stack.
func NewRouter(session *review.Session, opts Options) (http.Handler, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	key := opts.CSRFKey
	if len(key) != 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
	}
	limit := opts.MutationLimit
	if limit <= 0 {
		limit = defaultMutationLimit
	}

	renderer := NewRenderer(templateSub, opts.Version, opts.Logger)
	h := &Handlers{session: session, renderer: renderer}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(observe(opts.Logger))
	r.Use(csrfProtect(key, renderer))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/logs", http.StatusFound)
	})
	r.Get("/logs", h.HandleList)
	r.Get("/logs/export", h.HandleExport)
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(limit, time.Minute))
		r.Post("/logs/import", h.HandleImport)
		r.Delete("/logs/{id}", h.HandleDelete)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return r, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Str(vlog.FieldAddr, srv.Addr).Msg("web UI running")
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn().Str(vlog.FieldAddr, srv.Addr).Msg("binding to all interfaces; the UI may be reachable from the network")
	}

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down web UI")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
