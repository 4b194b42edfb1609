package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/sitepack/cmd/sitepack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build  commands.BuildCmd  `cmd:"" help:"Build the site assets for the selected mode"`
		Dev    commands.DevCmd    `cmd:"" help:"Watch, rebuild and live reload the site"`
		Serve  commands.ServeCmd  `cmd:"" help:"Serve a previously built output directory"`
		Config commands.ConfigCmd `cmd:"" help:"Print the resolved build configuration"`

		Debug     bool   `help:"Enable debug mode."`
		Mode      string `help:"Build mode, only production enables production behaviour" env:"NODE_ENV"`
		Project   string `help:"Path to the project file (default: nearest sitepack.yaml)" short:"p" type:"path"`
		Telemetry bool   `help:"Export metrics and traces over OTLP" env:"SITEPACK_TELEMETRY"`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:     cli.Debug,
		Version:   version,
		Mode:      cli.Mode,
		Project:   cli.Project,
		Telemetry: cli.Telemetry,
	})
	cmd.FatalIfErrorf(err)
}
