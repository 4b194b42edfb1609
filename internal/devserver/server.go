// Package devserver rebuilds assets on change and tells connected browsers
// to reload.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/sitepack/internal/assets"
	httpmiddleware "github.com/wolfeidau/sitepack/internal/http"
)

// ErrHotReloadDisabled is returned for configurations that do not enable
// hot reload, i.e. production builds.
var ErrHotReloadDisabled = errors.New("hot reload is disabled for this configuration")

type Options struct {
	// Address the HTTP server listens on
	Listen string
	// Origins allowed to fetch assets cross-origin
	CORSOrigins []string
	// Attempts made to bind the listener before giving up
	ListenAttempts uint
}

// Server serves the output directory and pushes reloads after every rebuild.
type Server struct {
	pipeline *assets.Pipeline
	hub      *Hub
	opts     Options
}

// New creates a dev server for a pipeline whose configuration enables hot reload.
func New(pipeline *assets.Pipeline, opts Options) (*Server, error) {
	if !pipeline.Config().HotReload {
		return nil, ErrHotReloadDisabled
	}
	if opts.ListenAttempts == 0 {
		opts.ListenAttempts = 5
	}

	return &Server{
		pipeline: pipeline,
		hub:      NewHub(),
		opts:     opts,
	}, nil
}

// Hub returns the server's live reload hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler serving the reload endpoint, the
// document and the built assets.
func (s *Server) Handler() http.Handler {
	cfg := s.pipeline.Config()
	static := s.pipeline.OutputDir()
	prefix := httpmiddleware.PublicPathPrefix(cfg.PublicPath)

	mux := http.NewServeMux()
	mux.Handle(assets.ReloadPath, s.hub)

	if prefix == "/" {
		mux.Handle("/", httpmiddleware.StaticHandler(static, cfg.DocumentFilename))
	} else {
		mux.Handle(prefix, http.StripPrefix(strings.TrimSuffix(prefix, "/"), httpmiddleware.StaticHandler(static, "")))
		mux.Handle("/", s.pipeline.Handler(nil))
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(mux)

	return httpmiddleware.ClientIPMiddleware()(httpmiddleware.AccessLog()(handler))
}

// Run builds, starts watch mode and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	opts, err := s.pipeline.BuildOptions()
	if err != nil {
		return err
	}
	opts.Plugins = append(opts.Plugins, s.reloadPlugin(ctx))

	buildCtx, ctxErr := api.Context(opts)
	if ctxErr != nil {
		return fmt.Errorf("failed to create esbuild context: %s", strings.Join(assets.FormatMessages(ctxErr.Errors), "; "))
	}
	defer buildCtx.Dispose()

	// errors are reported by the plugin, watch mode retries on the next change
	buildCtx.Rebuild()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch mode: %w", err)
	}

	listener, err := s.listen(ctx)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	log.Info().
		Str("addr", listener.Addr().String()).
		Str("output_dir", s.pipeline.OutputDir()).
		Msg("Dev server listening")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	s.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Info().Msg("Dev server shutting down")
	return server.Shutdown(shutdownCtx)
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	return backoff.Retry(ctx, func() (net.Listener, error) {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, "tcp", s.opts.Listen)
		if err != nil {
			log.Debug().Err(err).Str("addr", s.opts.Listen).Msg("Listen failed")
			return nil, err
		}
		return l, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.opts.ListenAttempts),
	)
}

// reloadPlugin applies every build result to the pipeline and notifies
// connected browsers.
func (s *Server) reloadPlugin(ctx context.Context) api.Plugin {
	var (
		mu      sync.Mutex
		started time.Time
	)

	return api.Plugin{
		Name: "sitepack-reload",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				mu.Lock()
				started = time.Now()
				mu.Unlock()
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				mu.Lock()
				begun := started
				mu.Unlock()

				s.handleResult(ctx, *result, begun)
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (s *Server) handleResult(ctx context.Context, result api.BuildResult, started time.Time) {
	err := s.pipeline.Apply(ctx, result, started)
	switch {
	case errors.Is(err, assets.ErrBuildFailed):
		s.hub.Broadcast(ctx, Message{Type: MessageError, Errors: assets.FormatMessages(result.Errors)})
	case err != nil:
		log.Error().Err(err).Msg("Failed to apply build result")
		s.hub.Broadcast(ctx, Message{Type: MessageError, Errors: []string{err.Error()}})
	default:
		n := s.hub.Broadcast(ctx, Message{Type: MessageReload})
		log.Debug().Int("clients", n).Msg("Reload broadcast")
	}
}
