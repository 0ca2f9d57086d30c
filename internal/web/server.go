// Package web serves a read-mostly HTML preview of the workspace plus a small
// JSON API over the same operations the CLI and MCP server use.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/koen666/MarkTex/internal/config"
	"github.com/koen666/MarkTex/internal/logging"
	"github.com/koen666/MarkTex/internal/metrics"
	"github.com/koen666/MarkTex/internal/ops"
	"github.com/koen666/MarkTex/internal/thumb"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates and configures the HTTP server for the preview UI.
func NewServer(env *ops.Env, cfg *config.Config, version, bind string, port int) *http.Server {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		logging.L().Fatal("failed to create template sub-FS", zap.Error(err))
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		logging.L().Fatal("failed to create static sub-FS", zap.Error(err))
	}

	h := NewHandlers(env, cfg, NewRenderer(templateSub, version))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           logging.Middleware(securityHeaders(h.routes(staticSub))),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handlers) routes(static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /docs/{id...}", h.HandleDocument)
	mux.HandleFunc("GET /raw/{id...}", h.HandleRaw)
	mux.HandleFunc("GET /thumb/{id...}", h.HandleThumb)

	mux.HandleFunc("GET /api/tree", h.HandleTree)
	mux.HandleFunc("GET /api/files/{id...}", h.HandleRead)
	mux.HandleFunc("PUT /api/files/{id...}", h.HandleWrite)
	mux.HandleFunc("DELETE /api/files/{id...}", h.HandleDelete)
	mux.HandleFunc("POST /api/select/{id...}", h.HandleSelect)
	mux.HandleFunc("POST /api/uploads", h.HandleUpload)
	mux.HandleFunc("GET /api/outline/{id...}", h.HandleOutline)
	mux.HandleFunc("GET /api/render/{id...}", h.HandleRender)
	mux.HandleFunc("GET /api/status", h.HandleStatus)

	mux.HandleFunc("GET /static/code.css", h.HandleCodeCSS)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// NewHandlers creates the route handlers. The thumbnail cache lives as long
// as the handlers do.
func NewHandlers(env *ops.Env, cfg *config.Config, renderer *Renderer) *Handlers {
	return &Handlers{
		env:      env,
		cfg:      cfg,
		renderer: renderer,
		thumbs:   thumb.NewCache(thumb.MaxSize),
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
// Images may be data URLs because documents can embed them inline.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy",
			"default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.Info("preview server running", zap.String("url", "http://"+srv.Addr))
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logging.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logging.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
