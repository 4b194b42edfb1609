package commands

import (
	"context"

	"github.com/wolfeidau/sitepack/internal/assets"
	"github.com/wolfeidau/sitepack/internal/devserver"
)

type DevCmd struct {
	Listen      string   `help:"HTTP server listen address" default:"localhost:3000" env:"SITEPACK_LISTEN"`
	CORSOrigins []string `help:"origins allowed to load assets cross-origin" env:"SITEPACK_CORS_ORIGINS"`
}

func (c *DevCmd) Run(ctx context.Context, globals *Globals) error {
	log, shutdown := globals.setup(ctx)
	defer shutdown()

	cfg, err := globals.Configuration()
	if err != nil {
		return err
	}

	pipeline, err := assets.New(cfg)
	if err != nil {
		return err
	}

	server, err := devserver.New(pipeline, devserver.Options{
		Listen:      c.Listen,
		CORSOrigins: c.CORSOrigins,
	})
	if err != nil {
		return err
	}

	log.Info().Str("version", globals.Version).Str("listen", c.Listen).Msg("Starting dev server")

	return server.Run(ctx)
}
