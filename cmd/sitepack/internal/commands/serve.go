package commands

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/sitepack/internal/assets"
	httpmiddleware "github.com/wolfeidau/sitepack/internal/http"
)

type ServeCmd struct {
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"SITEPACK_LISTEN"`
	Dir    string `help:"directory to serve (default: the project output directory)" type:"path"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	logger, shutdown := globals.setup(ctx)
	defer shutdown()

	handler, err := c.handler(globals)
	if err != nil {
		return err
	}

	server := configureHTTPServer(c.Listen, handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("version", globals.Version).Str("listen", c.Listen).Msg("Serving site")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info().Msg("Shutting down")
	return server.Shutdown(shutdownCtx)
}

func (c *ServeCmd) handler(globals *Globals) (http.Handler, error) {
	dir := c.Dir
	if dir == "" {
		cfg, err := globals.Configuration()
		if err != nil {
			return nil, err
		}
		dir = cfg.OutputDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.RootDir, dir)
		}
	}

	manifest, err := assets.ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dir", dir).
		Str("build_id", manifest.BuildID).
		Str("environment", manifest.Environment).
		Msg("Loaded build manifest")

	mux := http.NewServeMux()
	if prefix := httpmiddleware.PublicPathPrefix(manifest.PublicPath); prefix != "/" {
		assetHandler := httpmiddleware.StaticHandler(dir, "", manifest.Immutable...)
		mux.Handle(prefix, http.StripPrefix(strings.TrimSuffix(prefix, "/"), assetHandler))
	}
	mux.Handle("/", httpmiddleware.StaticHandler(dir, manifest.Document, manifest.Immutable...))

	return httpmiddleware.ClientIPMiddleware()(httpmiddleware.AccessLog()(mux)), nil
}
