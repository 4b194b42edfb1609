package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/sitepack/internal/buildmode"
	"github.com/wolfeidau/sitepack/internal/config"
	"github.com/wolfeidau/sitepack/internal/logger"
	"github.com/wolfeidau/sitepack/internal/telemetry"
)

const serviceName = "sitepack"

type Globals struct {
	Debug     bool
	Version   string
	Mode      string
	Project   string
	Telemetry bool
}

// Configuration resolves the build configuration for the selected mode. The
// mode is read once by the CLI and passed here explicitly.
func (g *Globals) Configuration() (buildmode.Configuration, error) {
	project, err := g.loadProject()
	if err != nil {
		return buildmode.Configuration{}, err
	}
	return buildmode.NewResolver(project).Resolve(g.Mode), nil
}

func (g *Globals) loadProject() (buildmode.Project, error) {
	if g.Project != "" {
		return config.Load(g.Project)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return buildmode.Project{}, fmt.Errorf("failed to get working directory: %w", err)
	}

	path, err := config.Find(cwd)
	if errors.Is(err, config.ErrProjectNotFound) {
		project := buildmode.DefaultProject()
		project.Root = cwd
		return project, nil
	}
	if err != nil {
		return buildmode.Project{}, err
	}

	return config.Load(path)
}

// setup configures logging and, when enabled, telemetry. The returned
// function flushes telemetry and must always be called.
func (g *Globals) setup(ctx context.Context) (zerolog.Logger, func()) {
	log := logger.SetupGlobal(g.Debug)

	if !g.Telemetry {
		return log, func() {}
	}

	log.Info().Msg("Telemetry is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, serviceName, g.Version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return log, func() {}
	}

	return log, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
