package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wolfeidau/sitepack/internal/assets"
)

type BuildCmd struct {
	Clean bool `help:"remove the output directory before building" default:"false"`
}

func (c *BuildCmd) Run(ctx context.Context, globals *Globals) error {
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

	if c.Clean {
		log.Debug().Str("output_dir", pipeline.OutputDir()).Msg("Cleaning output directory")
		if err := os.RemoveAll(pipeline.OutputDir()); err != nil {
			return fmt.Errorf("failed to clean output dir: %w", err)
		}
	}

	log.Info().
		Str("version", globals.Version).
		Str("environment", cfg.Environment.String()).
		Msg("Starting build")

	return pipeline.Build(ctx)
}
